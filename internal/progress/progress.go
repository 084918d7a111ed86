// Package progress renders a live click counter on a terminal line.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Counter shows clicks, the measured rate and, when a limit is set, a bar
// toward it. It is safe to call from the session's event goroutine while
// the caller finishes it from another.
type Counter struct {
	mu         sync.Mutex
	out        io.Writer
	enabled    bool
	interval   time.Duration
	limit      int64
	count      int64
	session    string
	startTime  time.Time
	lastUpdate time.Time
	now        func() time.Time
}

// NewCounter writes to stderr so stdout stays parseable. limit <= 0 means
// unlimited.
func NewCounter(session string, limit int64) *Counter {
	c := &Counter{
		out:      os.Stderr,
		enabled:  true,
		interval: 100 * time.Millisecond,
		limit:    limit,
		session:  session,
		now:      time.Now,
	}
	c.startTime = c.now()
	return c
}

// SetOutput redirects rendering.
func (c *Counter) SetOutput(w io.Writer) {
	c.mu.Lock()
	c.out = w
	c.mu.Unlock()
}

func (c *Counter) Disable() {
	c.mu.Lock()
	c.enabled = false
	c.mu.Unlock()
}

// Set records the session's running count and redraws if the throttle
// interval has passed.
func (c *Counter) Set(count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = count
	now := c.now()
	if now.Sub(c.lastUpdate) < c.interval {
		return
	}
	c.lastUpdate = now
	c.render(now)
}

// Finish draws the final line with the stop reason and ends it.
func (c *Counter) Finish(count int64, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.count = count
	c.render(c.now())
	if reason != "" {
		fmt.Fprintf(c.out, " | %s", reason)
	}
	fmt.Fprint(c.out, "\n")
}

// Line formats the current state without writing it.
func (c *Counter) Line() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.line(c.now())
}

func (c *Counter) render(now time.Time) {
	if !c.enabled {
		return
	}
	fmt.Fprint(c.out, "\r"+c.line(now))
}

func (c *Counter) line(now time.Time) string {
	elapsed := now.Sub(c.startTime)
	var rate float64
	if elapsed > 0 {
		rate = float64(c.count) / elapsed.Seconds()
	}

	var b strings.Builder
	if c.session != "" {
		fmt.Fprintf(&b, "%s ", shortID(c.session))
	}
	if c.limit > 0 {
		percent := float64(c.count) / float64(c.limit) * 100
		if percent > 100 {
			percent = 100
		}
		fmt.Fprintf(&b, "[%s] %d/%d (%.1f%%)", bar(percent), c.count, c.limit, percent)
	} else {
		fmt.Fprintf(&b, "%d clicks", c.count)
	}
	fmt.Fprintf(&b, " | %.1f cps | %s", rate, FormatDuration(elapsed))
	return b.String()
}

func bar(percent float64) string {
	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	if filled == barWidth {
		return strings.Repeat("=", barWidth)
	}
	return strings.Repeat("=", filled) + ">" + strings.Repeat("-", barWidth-filled-1)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
