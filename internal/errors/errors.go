package errors

// DomainError is the transport-facing error shape: a stable machine
// code plus a human-readable message. Handlers translate service
// errors into these before responding.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

func New(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}
