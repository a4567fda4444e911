package entity

import "math"

// CompletionRate is round(100 * completed / total), 0 for an empty set.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// AverageProgress is round(sum / count), 0 for an empty set.
func AverageProgress(sum, count int) int {
	if count <= 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(count)))
}
