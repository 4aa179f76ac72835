package app

import "fmt"

// DomainError is a service-level failure carrying the HTTP status and machine
// code the handler should emit. Details, when set, must be JSON-encodable.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}

// notFound is the common case of a missing org-scoped entity.
func notFound(what string) *DomainError {
	return domainError(404, "NOT_FOUND", fmt.Sprintf("%s not found", what), nil)
}
