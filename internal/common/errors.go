package common

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindAlreadyProcessed  ErrorKind = "ALREADY_PROCESSED"
	KindConflict          ErrorKind = "CONFLICT"
	KindForbidden         ErrorKind = "FORBIDDEN"
)

// Kind sentinels for errors.Is.
var (
	ErrNotFound          = &LedgerError{Kind: KindNotFound}
	ErrInvalidInput      = &LedgerError{Kind: KindInvalidInput}
	ErrInsufficientStock = &LedgerError{Kind: KindInsufficientStock}
	ErrAlreadyProcessed  = &LedgerError{Kind: KindAlreadyProcessed}
	ErrConflict          = &LedgerError{Kind: KindConflict}
	ErrForbidden         = &LedgerError{Kind: KindForbidden}
)

// LedgerError is the typed failure returned by ledger operations. Key is a
// message constant from messages.go rendered with Args.
type LedgerError struct {
	Kind      ErrorKind
	Key       string
	Args      []interface{}
	ItemID    uuid.UUID
	ItemName  string
	Available int
	Requested int
	Err       error
}

func (e *LedgerError) Error() string {
	msg := e.Localize(language.English)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Is matches any LedgerError of the same kind.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func (e *LedgerError) Localize(tag language.Tag) string {
	if e.Key == "" {
		return string(e.Kind)
	}
	return Translate(tag, e.Key, e.Args...)
}

func newError(kind ErrorKind, key string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: kind, Key: key, Args: args}
}

func NotFound(key string, args ...interface{}) *LedgerError {
	return newError(KindNotFound, key, args...)
}

func InvalidInput(key string, args ...interface{}) *LedgerError {
	return newError(KindInvalidInput, key, args...)
}

func Forbidden(key string, args ...interface{}) *LedgerError {
	return newError(KindForbidden, key, args...)
}

func AlreadyProcessed(requestNumber string, status string) *LedgerError {
	return newError(KindAlreadyProcessed, MsgRequestAlreadyProcessed, requestNumber, status)
}

func Conflict(itemID uuid.UUID, cause error) *LedgerError {
	e := newError(KindConflict, MsgConcurrentUpdate, itemID.String())
	e.ItemID = itemID
	e.Err = cause
	return e
}

// InsufficientStock reports a shortfall with the quantity actually available.
func InsufficientStock(itemID uuid.UUID, itemName string, requested, available int) *LedgerError {
	e := newError(KindInsufficientStock, MsgInsufficientStock, itemName, requested, available)
	e.ItemID = itemID
	e.ItemName = itemName
	e.Requested = requested
	e.Available = available
	return e
}

// KindOf returns the kind of a LedgerError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
