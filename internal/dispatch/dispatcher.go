// Package dispatch is the notification side-effect boundary. The worker
// hands it a fire event; implementations deliver the notification however
// they see fit and report the outcome. Nothing here touches trigger state.
package dispatch

import (
	"context"
	"time"

	"notehub/internal/domain"
)

// Result is the outcome of one dispatch attempt. There is exactly one
// attempt per fire event; failures are recorded, never retried.
type Result struct {
	StatusCode int
	Error      error
	Duration   time.Duration
}

func (r Result) IsSuccess() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Dispatcher performs the notification side effect for a fire event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.FireEvent) Result
}
