package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRunID is the per-invocation correlation ID (UUID).
	FieldRunID = "run_id"

	// FieldSyncID is the sync ledger row the run is operating on.
	FieldSyncID = "sync_id"

	// FieldJobID is the job ledger row being worked.
	FieldJobID = "job_id"

	// FieldDepartmentID is the upstream department being listed.
	FieldDepartmentID = "department_id"

	// FieldItemID is the upstream item being fetched.
	FieldItemID = "item_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"

	// FieldRequestID is the HTTP request ID on the status API.
	FieldRequestID = "request_id"
)

// Standard metric fields, used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field.
	FieldCount = "count"

	// FieldStatus is the operation status.
	FieldStatus = "status"

	// FieldSize is a payload size in bytes.
	FieldSize = "size"
)
