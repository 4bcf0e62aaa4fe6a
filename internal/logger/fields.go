package logger

// Standard field names for structured logging. Use these instead of raw
// strings so log queries stay consistent across components.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldBackend   = "backend"
	FieldNamespace = "namespace"

	FieldConceptID = "concept_id"
	FieldOwnerID   = "owner_id"
	FieldName      = "name"
	FieldHandle    = "handle"
	FieldFactor    = "factor"

	FieldEndpoint   = "endpoint"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldAddress    = "address"

	FieldCount = "count"
	FieldFile  = "file"
	FieldError = "error"
)
