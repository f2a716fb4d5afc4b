package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrKeyMissing   = errors.New("key material missing")
)

// DecryptionError reports any failure to open an encrypted payload envelope.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	if e == nil || e.Err == nil {
		return "decryption failed"
	}
	return e.Err.Error()
}

func (e *DecryptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorKind classifies a protocol failure for the client.
type ErrorKind int

const (
	KindServerFault ErrorKind = iota
	KindConfiguration
	KindClientRequest
	KindAuthentication
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindClientRequest:
		return "client_request"
	case KindAuthentication:
		return "authentication"
	default:
		return "server_fault"
	}
}

// ProtocolError is the terminal outcome of a failed request. Message is safe
// to show to the client; Err carries the cause for logs only.
type ProtocolError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func NewProtocolError(kind ErrorKind, message string, err error) *ProtocolError {
	return &ProtocolError{Kind: kind, Message: message, Err: err}
}

// KindOf returns the classification of err. Errors that are not a
// ProtocolError are server faults.
func KindOf(err error) ErrorKind {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindServerFault
}
