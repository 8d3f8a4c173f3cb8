package xddgo

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is a structured xddgo error carrying the target/pass/worker
// context a bare error from deep in the I/O path would otherwise lose.
type Error struct {
	Op     string    // operation that failed (e.g., "RUN_PASS", "OPEN_TARGET", "E2E_SEND")
	Target string    // target name (empty if not applicable)
	Pass   int       // pass number (-1 if not applicable)
	Worker int       // worker index (-1 if not applicable)
	Code   ErrorCode // high-level error category
	Errno  syscall.Errno
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Target != "" {
		parts = append(parts, fmt.Sprintf("target=%s", e.Target))
	}
	if e.Pass >= 0 {
		parts = append(parts, fmt.Sprintf("pass=%d", e.Pass))
	}
	if e.Worker >= 0 {
		parts = append(parts, fmt.Sprintf("worker=%d", e.Worker))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("xddgo: %s (%s)", msg, joinParts(parts))
	}
	return fmt.Sprintf("xddgo: %s", msg)
}

func joinParts(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}

// Unwrap supports errors.Is/As over the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison against another *Error by Code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is a high-level error category.
type ErrorCode string

const (
	ErrCodeInvalidParameters ErrorCode = "invalid parameters"
	ErrCodeTargetNotFound    ErrorCode = "target not found"
	ErrCodeIOError           ErrorCode = "I/O error"
	ErrCodeTimeout           ErrorCode = "timeout"
	ErrCodeProtocol          ErrorCode = "protocol error"
	ErrCodeStopOnError       ErrorCode = "stop on error ceiling reached"
	ErrCodeCanceled          ErrorCode = "canceled"
	ErrCodePermissionDenied  ErrorCode = "permission denied"
	ErrCodeInsufficientSpace ErrorCode = "insufficient space"
)

// NewError creates a structured error with no target/pass/worker context.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Pass: -1, Worker: -1, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a structured error from a syscall errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Pass: -1, Worker: -1, Code: code, Errno: errno, Msg: errno.Error()}
}

// NewTargetError creates a target-scoped error.
func NewTargetError(op, target string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Target: target, Pass: -1, Worker: -1, Code: code, Msg: msg}
}

// NewWorkerError creates a target/pass/worker-scoped error.
func NewWorkerError(op, target string, pass, worker int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Target: target, Pass: pass, Worker: worker, Code: code, Msg: msg}
}

// WrapError wraps an existing error with xddgo context, mapping syscall
// errno values to an ErrorCode where possible.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if xe, ok := inner.(*Error); ok {
		return &Error{
			Op: op, Target: xe.Target, Pass: xe.Pass, Worker: xe.Worker,
			Code: xe.Code, Errno: xe.Errno, Msg: xe.Msg, Inner: xe.Inner,
		}
	}

	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Pass: -1, Worker: -1, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Pass: -1, Worker: -1, Code: ErrCodeIOError, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParameters
	case syscall.ENOENT:
		return ErrCodeTargetNotFound
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.ENOSPC:
		return ErrCodeInsufficientSpace
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout
	default:
		return ErrCodeIOError
	}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Code == code
	}
	return false
}

// IsErrno reports whether err is (or wraps) an *Error with the given errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Errno == errno
	}
	return false
}
