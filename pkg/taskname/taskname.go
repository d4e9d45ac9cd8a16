package taskname

const (
	// Request log tasks
	RequestLogWrite = "license:request_log:write"
	RequestLogPurge = "license:request_log:purge"
)
