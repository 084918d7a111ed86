package platform

import "strings"

// MatchTitle picks the window whose title best matches want: an exact match
// wins, then the first case-insensitive substring match. It returns -1 when
// nothing matches.
func MatchTitle(titles []string, want string) int {
	want = strings.TrimSpace(want)
	if want == "" {
		return -1
	}
	for i, t := range titles {
		if t == want {
			return i
		}
	}
	lw := strings.ToLower(want)
	for i, t := range titles {
		if strings.Contains(strings.ToLower(t), lw) {
			return i
		}
	}
	return -1
}

// uniqueTitles drops blanks and duplicates, keeping first-seen order.
func uniqueTitles(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
