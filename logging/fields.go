package logging

// Field names.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldBytes      = "bytes"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldFundID     = "fund_id"
	FieldCycle      = "cycle"
	FieldMember     = "member"
	FieldCount      = "count"
)

// Components.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentBook    = "book"
	ComponentStorage = "storage"
	ComponentAuth    = "auth"
	ComponentSheets  = "sheets"
)

// Operations.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpRestore  = "restore"
	OpLoad     = "load"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
