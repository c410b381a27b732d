package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind is what calling layers branch on. Messages are for humans and
// never carry storage error detail.
type ErrorKind string

const (
	ErrorKindNotFound           ErrorKind = "NotFound"
	ErrorKindInvalidState       ErrorKind = "InvalidState"
	ErrorKindInvalidArgument    ErrorKind = "InvalidArgument"
	ErrorKindQuantityExceeded   ErrorKind = "QuantityExceeded"
	ErrorKindInsufficientStock  ErrorKind = "InsufficientStock"
	ErrorKindDuplicateKey       ErrorKind = "DuplicateKey"
	ErrorKindSequenceContention ErrorKind = "SequenceContention"
	ErrorKindInternal           ErrorKind = "Internal"
)

type kinder interface {
	ErrorKind() ErrorKind
}

type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) ErrorKind() ErrorKind {
	return e.Kind
}

func NewError(kind ErrorKind, format string, args ...any) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError carries available vs requested so callers can show
// both without parsing the message.
type InsufficientStockError struct {
	Unit      string
	Floor     string
	Pocket    string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for unit %s, floor %s, pocket %s: available=%s, requested=%s",
		e.Unit, e.Floor, e.Pocket, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) ErrorKind() ErrorKind {
	return ErrorKindInsufficientStock
}

// KindOf maps any error to its stable kind. Storage errors and other
// unclassified failures report as Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ErrorKindInternal
}
