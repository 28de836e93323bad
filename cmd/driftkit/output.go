package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/driftkit/driftkit/internal/engine"
	"github.com/driftkit/driftkit/internal/model"
)

// printSummary renders one line per step plus pending or recorded
// changes, then a totals footer.
func printSummary(w io.Writer, summary *engine.Summary) {
	for _, result := range summary.Results {
		fmt.Fprintf(w, "[%s] %s: %s\n", statusLabel(result.Status), result.StepID, result.Message)
		if result.Error != nil {
			fmt.Fprintf(w, "    error: %v\n", result.Error)
		}
		if len(result.Changes) > 0 {
			rendered, err := yaml.Marshal(result.Changes)
			if err == nil {
				for _, line := range strings.Split(strings.TrimRight(string(rendered), "\n"), "\n") {
					fmt.Fprintf(w, "    %s\n", line)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%d succeeded, %d failed, %d skipped, %d pending\n",
		summary.Succeeded, summary.Failed, summary.Skipped, summary.Previewed)
}

func statusLabel(status string) string {
	switch status {
	case model.StatusSuccess:
		return "ok"
	case model.StatusFailed:
		return "fail"
	case model.StatusSkipped:
		return "skip"
	case model.StatusWouldCreate:
		return "would create"
	case model.StatusWouldUpdate:
		return "would update"
	default:
		return status
	}
}
