// Package notifier delivers article summaries to their destination.
// Implementations are injected into the pipeline so dry runs and tests
// can swap the real chat platform out.
package notifier

import "context"

// Message is one delivery: the summary plus its provenance
type Message struct {
	Title   string
	Link    string
	Summary string
}

// Notifier sends a direct message to the configured user
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
	Close() error
}
