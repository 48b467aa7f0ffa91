package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindNetwork         ErrorKind = "NETWORK_ERROR"
	KindServer          ErrorKind = "SERVER_ERROR"
	KindInvalidResponse ErrorKind = "INVALID_RESPONSE"
)

// Error is returned by every Client method. Message is safe to show to the
// customer as-is.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	// Type is the error type reported by the API, if any.
	Type string
	Err  error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	ae, ok := IsError(err)
	return ok && ae.Status == http.StatusNotFound
}

const (
	msgNetwork         = "Impossible de contacter le serveur. Vérifiez votre connexion et réessayez."
	msgInvalidResponse = "Réponse inattendue du serveur."
	msgServer          = "Une erreur est survenue, veuillez réessayer plus tard."
)

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: msgNetwork, Err: err}
}

func invalidResponse(status int, err error) *Error {
	return &Error{Kind: KindInvalidResponse, Status: status, Message: msgInvalidResponse, Err: err}
}

func serverError(status int, message, typ string) *Error {
	if message == "" {
		message = msgServer
	}
	return &Error{Kind: KindServer, Status: status, Message: message, Type: typ}
}
