package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID = "user_id"
	FieldRole   = "role"

	// Service
	FieldService = "service"

	// Catalog
	FieldApartmentID  = "apartment_id"
	FieldProjectID    = "project_id"
	FieldSearchEngine = "search_engine"
	FieldSyncTask     = "sync_task"
	FieldCount        = "count"
	FieldDuration     = "duration_ms"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
