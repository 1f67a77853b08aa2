package logger

// Standard field key constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldRunnable  = "runnable"
	FieldChain     = "chain"
	FieldStep      = "step"
	FieldBranch    = "branch"
	FieldIndex     = "index"
	FieldAttempt   = "attempt"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("chain loaded", logger.Fields("chain", name, "steps", 3))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
