package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete collectors.
type Recorder interface {
	// RecordOperation records an operation outcome such as ("append", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence, typed by its error category.
	RecordError(operation, errorType string)
}

// NoOpRecorder is a Recorder that discards everything.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (n *NoOpRecorder) RecordOperation(operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpRecorder) RecordDuration(operation string, seconds float64) {}

// RecordError does nothing.
func (n *NoOpRecorder) RecordError(operation, errorType string) {}

// NewNoOpRecorder creates a new no-op recorder instance.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}
