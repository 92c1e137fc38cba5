// ABOUTME: No-op telemetry constructors for tests that exercise real components with telemetry off
// ABOUTME: Provides disabled telemetry only, never business logic mocks

package telemetry

// NewForTesting returns a no-op telemetry instance for use in tests.
func NewForTesting() Telemetry {
	return NewNoop()
}

// NewDisabled is an alias for NewNoop for callers that want telemetry explicitly off.
func NewDisabled() Telemetry {
	return NewNoop()
}
