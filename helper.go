package manzoori

import (
	"context"
	"time"

	"github.com/shahfaizanali/manzoori/service/approval"
)

// DecisionFunc decides what to do with a pending change.
// Return true to approve, false to reject.
type DecisionFunc func(change *approval.Change) bool

// AutoDecider starts a goroutine that polls the queue and applies fn to
// every pending change. It returns stop() - call it (or cancel ctx) to exit.
func AutoDecider(ctx context.Context, svc *Service, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				changes, _ := svc.changes.List(ctx)
				for _, change := range changes {
					if fn(change) {
						_ = svc.Approve(ctx, change)
					} else {
						_ = svc.Reject(ctx, change)
					}
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending changes.
func AutoApprove(ctx context.Context, svc *Service, interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*approval.Change) bool { return true }, interval)
}

// AutoReject automatically rejects all pending changes.
func AutoReject(ctx context.Context, svc *Service, interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*approval.Change) bool { return false }, interval)
}
