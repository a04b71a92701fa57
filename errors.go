package quant8

import "fmt"

// Code is a stable, C-ABI-friendly error code. These values are a public
// contract; never renumber them.
type Code int

const (
	OK                  Code = 0
	QualityTooLow       Code = 99
	ValueOutOfRange     Code = 100
	OutOfMemory         Code = 98
	Aborted             Code = 97
	BitmapNotAvailable  Code = 96
	BufferTooSmall      Code = 95
	InvalidPointer      Code = 94
	Unsupported         Code = 93
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case QualityTooLow:
		return "QualityTooLow"
	case ValueOutOfRange:
		return "ValueOutOfRange"
	case OutOfMemory:
		return "OutOfMemory"
	case Aborted:
		return "Aborted"
	case BitmapNotAvailable:
		return "BitmapNotAvailable"
	case BufferTooSmall:
		return "BufferTooSmall"
	case InvalidPointer:
		return "InvalidPointer"
	case Unsupported:
		return "Unsupported"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error wraps a Code with a human-readable message. It is the concrete
// error type every exported operation in quant8 returns; callers that
// need the numeric code can type-assert to *Error.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("quant8: %s: %s", e.Code, e.Msg)
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code from an error produced by this package, or OK
// if err is nil, or Unsupported if err is not a *Error.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return Unsupported
}
