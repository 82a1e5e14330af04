package dto

// Problem is an RFC 7807 error payload with the service extensions.
type Problem struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Status        int            `json:"status"`
	Detail        string         `json:"detail"`
	Instance      string         `json:"instance"`
	ErrorCode     string         `json:"errorCode"`
	TraceID       string         `json:"traceId"`
	CorrelationID string         `json:"correlationId"`
	Details       map[string]any `json:"details,omitempty"`
}
