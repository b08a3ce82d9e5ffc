package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

// JobFraction extracts a completion ratio from a job status that reports
// numeric "done" and "total" counters. ok is false for any other shape.
func JobFraction(status sitebag.JobStatus) (fraction float64, ok bool) {
	done, okDone := number(status.Progress["done"])
	total, okTotal := number(status.Progress["total"])
	if !okDone || !okTotal || total <= 0 {
		return 0, false
	}
	fraction = done / total
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return fraction, true
}

// JobDetails renders the progress payload as sorted key=value pairs.
func JobDetails(status sitebag.JobStatus) string {
	keys := make([]string, 0, len(status.Progress))
	for k := range status.Progress {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, status.Progress[k]))
	}
	return strings.Join(parts, " ")
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
