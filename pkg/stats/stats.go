package stats

import (
	"math"
	"sort"
)

// Mean computes the average of a slice, skipping NaN entries.
// It returns NaN when no entry is present.
func Mean(x []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// MeanInts computes the average of integer labels.
func MeanInts(x []int) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sum := 0
	for _, v := range x {
		sum += v
	}
	return float64(sum) / float64(len(x))
}

// ModeString returns the most frequent string; ties go to the
// lexicographically smallest.
func ModeString(x []string) (mode string, ok bool) {
	counts := make(map[string]int)
	for _, v := range x {
		counts[v]++
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	mode = keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[mode] {
			mode = k
		}
	}
	return mode, true
}

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
