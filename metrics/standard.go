package metrics

// Pre-defined metrics for the eth7702 authorization engine. All metrics
// live in DefaultRegistry so they are globally accessible without passing
// a registry around.

var (
	// ---- Dispatch metrics ----

	// OpsValidated counts operations that passed account validation.
	OpsValidated = DefaultRegistry.Counter("dispatch.ops_validated")
	// OpsExecuted counts operations that executed successfully.
	OpsExecuted = DefaultRegistry.Counter("dispatch.ops_executed")
	// OpsFailed counts operations that failed validation or execution.
	OpsFailed = DefaultRegistry.Counter("dispatch.ops_failed")
	// OpsDeployed counts successful deployment operations.
	OpsDeployed = DefaultRegistry.Counter("dispatch.ops_deployed")
	// BatchSize records the number of operations per HandleOps batch.
	BatchSize = DefaultRegistry.Histogram("dispatch.batch_size")
	// BatchDuration records wall-clock milliseconds per HandleOps batch.
	BatchDuration = DefaultRegistry.Histogram("dispatch.batch_duration_ms")
	// AccountsRegistered tracks the number of accounts bound to the
	// dispatcher.
	AccountsRegistered = DefaultRegistry.Gauge("dispatch.accounts")
)
