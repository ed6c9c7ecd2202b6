package tools

import (
	"errors"
	"fmt"

	"github.com/Napageneral/imessage-max/imessage"
)

// Kind classifies an operation failure on the wire.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindChatNotFound     Kind = "chat_not_found"
	KindMessageNotFound  Kind = "message_not_found"
	KindDatabaseNotFound Kind = "database_not_found"
	KindInternal         Kind = "internal_error"
)

// Error is a typed operation failure. It marshals as {"error", "message"}.
type Error struct {
	Kind    Kind   `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// AsError converts any error into a typed *Error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, imessage.ErrChatDBNotFound):
		return &Error{Kind: KindDatabaseNotFound, Message: err.Error()}
	case errors.Is(err, imessage.ErrChatNotFound):
		return &Error{Kind: KindChatNotFound, Message: err.Error()}
	case errors.Is(err, imessage.ErrMessageNotFound):
		return &Error{Kind: KindMessageNotFound, Message: err.Error()}
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}

// Envelope returns the value to put on the wire for an operation outcome:
// the result itself, or the typed error.
func Envelope[T any](result T, err error) any {
	if err != nil {
		return AsError(err)
	}
	return result
}
