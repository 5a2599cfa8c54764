package classvm

import "errors"

// Sentinel error kinds, one per failure mode named in the error handling
// design. Compare against these with errors.Is; callers that need the
// full derivation chain can print the wrapped error directly.
var (
	ErrMalformedClassFile   = errors.New("malformed class file")
	ErrMalformedDescriptor  = errors.New("malformed descriptor")
	ErrMalformedBytecode    = errors.New("malformed bytecode")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrStackOverflow        = errors.New("stack overflow")
	ErrNoCode               = errors.New("no code attribute")
	ErrClassNotFound        = errors.New("class not found")
	ErrMethodNotFound       = errors.New("method not found")
	ErrFieldNotFound        = errors.New("field not found")
	ErrArithmeticException  = errors.New("arithmetic exception")
	ErrCircularInit         = errors.New("circular class initialization")
	ErrUncaughtException    = errors.New("uncaught exception")
	ErrCancelled            = errors.New("cancelled")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// ThrownError carries the class name of a value thrown by athrow so
// dispatchException can match it against exception table catch types.
type ThrownError struct {
	Class string
}

func (e *ThrownError) Error() string {
	return "uncaught exception: " + e.Class
}

