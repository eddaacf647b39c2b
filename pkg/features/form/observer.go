package form

import "time"

// Observer receives form events for metrics. Implementations must be cheap
// and safe for concurrent use; see pkg/telemetry.
type Observer interface {
	ObserveDraftWrite(screenID string)
	ObserveSubmit(screenID string, status OutcomeStatus, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveDraftWrite(string)                           {}
func (nopObserver) ObserveSubmit(string, OutcomeStatus, time.Duration) {}
