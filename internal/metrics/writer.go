package metrics

// Session log export (CSV/JSON) and summary formatting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tturner/smiteclick/internal/store"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// FormatForPath picks the format from a file extension, defaulting to CSV.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

var csvHeader = []string{"id", "start_time", "end_time", "duration_seconds", "total_clicks", "cps"}

// WriteCSV writes logs with a header row.
func WriteCSV(w io.Writer, logs []store.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, e := range logs {
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.StartTime.UTC().Format(time.RFC3339Nano),
			e.EndTime.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(e.DurationSeconds, 'f', 3, 64),
			strconv.FormatInt(e.ClickCount, 10),
			strconv.FormatFloat(SessionCPS(e), 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes logs as an indented array.
func WriteJSON(w io.Writer, logs []store.LogEntry) error {
	if logs == nil {
		logs = []store.LogEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(logs); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// Write encodes logs in format f.
func Write(w io.Writer, f Format, logs []store.LogEntry) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, logs)
	case FormatCSV, "":
		return WriteCSV(w, logs)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// ExportFile writes logs to path in the format its extension implies.
func ExportFile(path string, logs []store.LogEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := Write(file, FormatForPath(path), logs); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// FormatSummary formats a summary for human-readable output
func FormatSummary(s *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sessions: %d\n", s.Sessions)
	if s.Sessions == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "Total Clicks: %d\n", s.TotalClicks)
	fmt.Fprintf(&b, "Total Time: %s\n", s.TotalDuration.Round(time.Millisecond))
	if s.EmptySessions > 0 {
		fmt.Fprintf(&b, "Sessions Without Clicks: %d\n", s.EmptySessions)
	}
	fmt.Fprintf(&b, "Range: %s .. %s\n", s.First.Local().Format(time.DateTime), s.Last.Local().Format(time.DateTime))

	fmt.Fprintf(&b, "\nRate (clicks/s):\n")
	fmt.Fprintf(&b, "  Overall: %.2f\n", s.AvgCPS)
	fmt.Fprintf(&b, "  Min: %.2f  Max: %.2f\n", s.MinCPS, s.MaxCPS)
	fmt.Fprintf(&b, "  P50: %.2f  P90: %.2f\n", s.P50CPS, s.P90CPS)
	fmt.Fprintf(&b, "  Longest: #%d, %.1fs, %d clicks\n", s.Longest.ID, s.Longest.DurationSeconds, s.Longest.ClickCount)

	fmt.Fprintf(&b, "  Buckets: <10s=%d 10-60s=%d 1-10m=%d 10-60m=%d >1h=%d\n",
		s.DurationBuckets[bucketOrder[0]],
		s.DurationBuckets[bucketOrder[1]],
		s.DurationBuckets[bucketOrder[2]],
		s.DurationBuckets[bucketOrder[3]],
		s.DurationBuckets[bucketOrder[4]],
	)

	fmt.Fprintf(&b, "\nPer-Day Statistics:\n")
	for _, day := range s.Days() {
		d := s.ByDay[day]
		fmt.Fprintf(&b, "  %s: %d sessions, %d clicks, %.1fs\n", day, d.Sessions, d.Clicks, d.Seconds)
	}
	return b.String()
}
