// Package notify delivers workflow run summaries to team channels.
// Delivery is strictly best-effort: a failed notification is logged and
// forgotten, never surfaced to the workflow caller.
package notify

import (
	"context"
	"fmt"

	"github.com/zulandar/switchman/internal/sync"
)

// Noop discards all summaries. Used when no webhook is configured.
type Noop struct{}

func (Noop) RunCompleted(context.Context, sync.Summary) {}

// Multi fans a summary out to several notifiers.
type Multi []sync.Notifier

func (m Multi) RunCompleted(ctx context.Context, s sync.Summary) {
	for _, n := range m {
		n.RunCompleted(ctx, s)
	}
}

// FormatSummary renders a one-line run summary for chat channels.
func FormatSummary(s sync.Summary) string {
	return fmt.Sprintf("switchman: %s processed %d tickets (%d fields written, %d comments, %d errors)",
		s.Workflow, s.Tickets, s.Writes, s.Comments, s.Errors)
}
