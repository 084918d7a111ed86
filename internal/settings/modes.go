package settings

import (
	"math"
	"strings"
	"time"
)

// CPSMode selects a cps band. The faster bands carry a warning that control
// surfaces must confirm before switching.
type CPSMode string

const (
	ModeNormal  CPSMode = "Normal"
	ModeFast    CPSMode = "Fast"
	ModeExtreme CPSMode = "Extreme"
	ModeInsane  CPSMode = "Insane"
)

type ModeInfo struct {
	Mode     CPSMode
	Min      float64
	Max      float64
	Warning  string
	Cooldown time.Duration
}

var modeTable = []ModeInfo{
	{Mode: ModeNormal, Min: 1, Max: 30},
	{Mode: ModeFast, Min: 31, Max: 50, Warning: "This speed may be suspicious in some applications."},
	{Mode: ModeExtreme, Min: 51, Max: 80, Warning: "This speed is highly detectable and increases the risk of being flagged or banned."},
	{Mode: ModeInsane, Min: 81, Max: 100, Warning: "Maximum output. This speed is virtually guaranteed to be detected. Use for experimental purposes only.", Cooldown: 10 * time.Second},
}

// Modes lists the bands from slowest to fastest.
func Modes() []ModeInfo {
	out := make([]ModeInfo, len(modeTable))
	copy(out, modeTable)
	return out
}

func (m CPSMode) Info() (ModeInfo, bool) {
	for _, info := range modeTable {
		if info.Mode == m {
			return info, true
		}
	}
	return ModeInfo{}, false
}

// ParseCPSMode matches a mode name case-insensitively.
func ParseCPSMode(s string) (CPSMode, bool) {
	for _, info := range modeTable {
		if strings.EqualFold(string(info.Mode), strings.TrimSpace(s)) {
			return info.Mode, true
		}
	}
	return "", false
}

// ModeFor returns the band containing cps, rounding to the nearest whole
// cps and saturating at either end.
func ModeFor(cps float64) CPSMode {
	r := math.Round(cps)
	for _, info := range modeTable {
		if r <= info.Max {
			return info.Mode
		}
	}
	return modeTable[len(modeTable)-1].Mode
}

// ClampToMode limits cps to the band of m. Unknown modes leave cps as is.
func ClampToMode(cps float64, m CPSMode) float64 {
	info, ok := m.Info()
	if !ok {
		return cps
	}
	return math.Max(info.Min, math.Min(cps, info.Max))
}
