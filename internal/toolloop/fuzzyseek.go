package toolloop

import "strings"

// seekSequence locates a contiguous run of lines in file matching search,
// trying three progressively looser comparisons in order: exact,
// trailing-whitespace-trimmed, fully-trimmed. Returns the starting line
// index of the match and the comparison tier used (0, 1, 2), or (-1, -1)
// if none matched.
func seekSequence(file, search []string) (start, tier int) {
	if len(search) == 0 {
		return -1, -1
	}

	compare := []func(string) string{
		func(s string) string { return s },
		func(s string) string { return strings.TrimRight(s, " \t") },
		func(s string) string { return strings.TrimSpace(s) },
	}

	for tier, norm := range compare {
		if idx := findRun(file, search, norm); idx >= 0 {
			return idx, tier
		}
	}
	return -1, -1
}

// findRun finds the first index in file where search occurs contiguously
// after both slices are normalized element-wise by norm.
func findRun(file, search []string, norm func(string) string) int {
	if len(search) > len(file) {
		return -1
	}
	normSearch := make([]string, len(search))
	for i, s := range search {
		normSearch[i] = norm(s)
	}
	for start := 0; start+len(search) <= len(file); start++ {
		matched := true
		for i, s := range normSearch {
			if norm(file[start+i]) != s {
				matched = false
				break
			}
		}
		if matched {
			return start
		}
	}
	return -1
}
