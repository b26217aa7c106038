// Package metrics records build observations. The default recorder does
// nothing; the server installs a Prometheus-backed one.
package metrics

import "time"

// Outcome labels the result of compiling a page or running a build.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Recorder defines observability hooks for a build run. Implementations must
// be safe for concurrent use.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome Outcome)
	ObservePageDuration(d time.Duration)
	IncPageOutcome(outcome Outcome)
	ObserveStageDuration(stage string, d time.Duration)
	SetCollectionSize(name string, n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncBuildOutcome(Outcome) {}
func (NoopRecorder) ObservePageDuration(time.Duration) {}
func (NoopRecorder) IncPageOutcome(Outcome) {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) SetCollectionSize(string, int) {}

// OutcomeOf maps an error to its outcome label.
func OutcomeOf(err error) Outcome {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}
