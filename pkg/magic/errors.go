package magic

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode classifies errors produced by this package.
type ErrorCode string

const (
	// ErrCodeConfig covers construction-time problems and attempts to use a
	// mode whose DSN was never supplied.
	ErrCodeConfig ErrorCode = "CONFIG"
	// ErrCodeNoSession is returned when session resolution finds neither an
	// explicit session nor a usable bound one.
	ErrCodeNoSession ErrorCode = "SESSION_NOT_BOUND"
	// ErrCodeSession covers session lifecycle misuse, such as committing a
	// session that is no longer active.
	ErrCodeSession ErrorCode = "SESSION"
	// ErrCodeInternal covers unexpected failures from the underlying ORM.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error carries a code, a message, the captured call stack and the original
// cause, if any.
type Error struct {
	Code    ErrorCode
	Message string
	Stack   []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the original cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// StackTrace returns the call stack captured at construction time.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// NewError creates an Error with the current call stack attached.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStackTrace(),
		Cause:   cause,
	}
}

// WrapError wraps err under a new code and message. Wrapping one of our own
// errors keeps the originally captured stack.
func WrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	if magicErr, ok := err.(*Error); ok {
		return &Error{
			Code:    code,
			Message: message,
			Stack:   magicErr.Stack,
			Cause:   magicErr,
		}
	}

	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStackTrace(),
		Cause:   err,
	}
}

func captureStackTrace() []string {
	pc := make([]uintptr, 32)
	n := runtime.Callers(3, pc)
	if n == 0 {
		return []string{}
	}

	frames := runtime.CallersFrames(pc[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !more {
			break
		}

		fn := frame.Function
		file := frame.File
		if idx := strings.LastIndex(file, "/"); idx != -1 {
			file = file[idx+1:]
		}
		if idx := strings.LastIndex(fn, "/"); idx != -1 {
			fn = fn[idx+1:]
		}
		stack = append(stack, fmt.Sprintf("  at %s (%s:%d)", fn, file, frame.Line))
	}
	return stack
}

// IsErrorCode reports whether err is one of our errors with the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if magicErr, ok := err.(*Error); ok {
		return magicErr.Code == code
	}
	return false
}

// GetErrorCode returns the code of err, or "" for nil and foreign errors.
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if magicErr, ok := err.(*Error); ok {
		return magicErr.Code
	}
	return ""
}
