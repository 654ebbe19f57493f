package notifier

import (
	"context"
	"log/slog"
)

// DryRun logs what would have been delivered instead of sending it.
// Used by the -dry-run flag and whenever delivery is disabled.
type DryRun struct{}

func NewDryRun() *DryRun {
	return &DryRun{}
}

func (d *DryRun) Notify(ctx context.Context, msg Message) error {
	slog.Info("dry run, skipping delivery", "title", msg.Title, "link", msg.Link, "summary_chars", len(msg.Summary))
	return nil
}

func (d *DryRun) Close() error {
	return nil
}
