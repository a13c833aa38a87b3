package observability

// Metric name prefixes
const (
	MetricPrefix = "warden"
)

// MeterName scopes every instrument the process registers
const MeterName = "warden"

// Metric names
const (
	// Assignment metrics
	AssignmentOperationsTotal = MetricPrefix + ".assignment.operations_total"
	WorkerBindingsReleased    = MetricPrefix + ".assignment.bindings_released_total"
)

// Label keys
const (
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelReason    = "reason"
	LabelProcess   = "process"
)

// Assignment operations
const (
	OperationAcquire       = "acquire"
	OperationRelease       = "release"
	OperationReleaseWorker = "release_worker"
)

// Assignment outcomes
const (
	OutcomeAcquired = "acquired"
	OutcomeLeased   = "already_leased"
	OutcomeBusy     = "all_busy"
	OutcomeLostRace = "lost_race"
	OutcomeReleased = "released"
	OutcomeUnbound  = "unbound"
	OutcomeError    = "error"
)
