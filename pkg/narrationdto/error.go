package narrationdto

// Failure is the body of every non-2xx response.
type Failure struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	Code      string `json:"code,omitempty"`
	Narration string `json:"narration,omitempty"`
	Retryable bool   `json:"retryable"`
}

const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidGame    = "INVALID_GAME"
	CodeBadResponse    = "BAD_MODEL_RESPONSE"
	CodeUpstream       = "UPSTREAM_UNAVAILABLE"
	CodeBusy           = "BUSY"
	CodeRateLimited    = "RATE_LIMITED"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
)
