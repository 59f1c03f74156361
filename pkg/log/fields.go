package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/identity.go keys)
	FieldUserID = "user_id"
	FieldCaller = "caller"

	// Service
	FieldService = "service"

	// Search shield
	FieldQuery     = "query"
	FieldCategory  = "category"
	FieldPage      = "page"
	FieldSource    = "source"
	FieldCacheKey  = "cache_key"
	FieldCacheHit  = "cache_hit"
	FieldPartial   = "partial"
	FieldPolicy    = "policy"
	FieldRemaining = "remaining"
	FieldResults   = "results"

	FieldLogType     = "log_type"
	LogTypeAnalytics = "analytics"
)
