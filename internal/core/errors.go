package core

// Error codes for protocol-level errors.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeSendFailed   = "send_failed"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeNoOpenChat   = "no_open_chat"
)

// CoreError attaches a protocol-level code to an underlying error.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}
