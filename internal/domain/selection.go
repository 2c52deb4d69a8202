package domain

import (
	"sort"
	"strconv"
	"strings"
)

// ParseSelection turns raw submitted values into option indices. Values that
// are not integers are dropped.
func ParseSelection(raw []string) []int {
	selected := make([]int, 0, len(raw))
	for _, value := range raw {
		idx, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		selected = append(selected, idx)
	}
	return selected
}

// NormalizeSelection deduplicates the selection, drops indices outside
// [0, optionCount) and returns the remainder in ascending order.
func NormalizeSelection(selected []int, optionCount int) []int {
	seen := make(map[int]struct{}, len(selected))
	normalized := make([]int, 0, len(selected))
	for _, idx := range selected {
		if idx < 0 || idx >= optionCount {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		normalized = append(normalized, idx)
	}
	sort.Ints(normalized)
	return normalized
}

// SameSet reports unordered set equality: same members, duplicates ignored.
// A subset or superset is not equal.
func SameSet(a, b []int) bool {
	left := make(map[int]struct{}, len(a))
	for _, v := range a {
		left[v] = struct{}{}
	}
	right := make(map[int]struct{}, len(b))
	for _, v := range b {
		right[v] = struct{}{}
	}
	if len(left) != len(right) {
		return false
	}
	for v := range left {
		if _, ok := right[v]; !ok {
			return false
		}
	}
	return true
}
