package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSyncID identifies one reconciliation/enrichment pipeline run
	FieldSyncID = "sync_id"

	// FieldAssetID is the numeric asset identifier
	FieldAssetID = "asset_id"

	// FieldPath is an asset path relative to the library root
	FieldPath = "path"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields, attached at the log call site.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
