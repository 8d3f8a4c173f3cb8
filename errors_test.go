package xddgo

import (
	"errors"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("RUN_PASS", ErrCodeInvalidParameters, "invalid queue depth")

	if err.Op != "RUN_PASS" {
		t.Errorf("Expected Op=RUN_PASS, got %s", err.Op)
	}
	if err.Code != ErrCodeInvalidParameters {
		t.Errorf("Expected Code=ErrCodeInvalidParameters, got %s", err.Code)
	}

	expected := "xddgo: invalid queue depth (op=RUN_PASS)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("OPEN_TARGET", ErrCodePermissionDenied, syscall.EPERM)

	if err.Errno != syscall.EPERM {
		t.Errorf("Expected Errno=EPERM, got %v", err.Errno)
	}
	if err.Code != ErrCodePermissionDenied {
		t.Errorf("Expected Code=ErrCodePermissionDenied, got %s", err.Code)
	}
}

func TestTargetError(t *testing.T) {
	err := NewTargetError("SET_PARAMS", "t0", ErrCodeIOError, "target in use")

	if err.Target != "t0" {
		t.Errorf("Expected Target=t0, got %s", err.Target)
	}
	expected := "xddgo: target in use (op=SET_PARAMS target=t0)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWorkerError(t *testing.T) {
	err := NewWorkerError("IO", "t0", 2, 1, ErrCodeIOError, "op stalled")

	if err.Target != "t0" {
		t.Errorf("Expected Target=t0, got %s", err.Target)
	}
	if err.Pass != 2 {
		t.Errorf("Expected Pass=2, got %d", err.Pass)
	}
	if err.Worker != 1 {
		t.Errorf("Expected Worker=1, got %d", err.Worker)
	}
}

func TestWrapError(t *testing.T) {
	inner := syscall.ENOSPC
	err := WrapError("WRITE", inner)

	if err.Code != ErrCodeInsufficientSpace {
		t.Errorf("Expected Code=ErrCodeInsufficientSpace, got %s", err.Code)
	}
	if err.Errno != syscall.ENOSPC {
		t.Errorf("Expected Errno=ENOSPC, got %v", err.Errno)
	}
	if !errors.Is(err, syscall.ENOSPC) {
		t.Error("Expected wrapped error to satisfy errors.Is for ENOSPC")
	}
}

func TestErrorIsComparesByCode(t *testing.T) {
	a := &Error{Code: ErrCodeTimeout}
	b := NewError("OTHER_OP", ErrCodeTimeout, "different message")

	if !errors.Is(b, a) {
		t.Error("errors with matching Code should compare equal via errors.Is")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("TEST", ErrCodeTimeout, "operation timed out")

	if !IsCode(err, ErrCodeTimeout) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, ErrCodeIOError) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, ErrCodeTimeout) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestIsErrno(t *testing.T) {
	err := NewErrorWithErrno("TEST", ErrCodeIOError, syscall.EIO)

	if !IsErrno(err, syscall.EIO) {
		t.Error("IsErrno should return true for matching errno")
	}
	if IsErrno(err, syscall.EPERM) {
		t.Error("IsErrno should return false for non-matching errno")
	}
	if IsErrno(nil, syscall.EIO) {
		t.Error("IsErrno should return false for nil error")
	}
}

func TestErrnoMapping(t *testing.T) {
	testCases := []struct {
		errno    syscall.Errno
		expected ErrorCode
	}{
		{syscall.ENOENT, ErrCodeTargetNotFound},
		{syscall.EINVAL, ErrCodeInvalidParameters},
		{syscall.EPERM, ErrCodePermissionDenied},
		{syscall.ENOSPC, ErrCodeInsufficientSpace},
		{syscall.ETIMEDOUT, ErrCodeTimeout},
	}

	for _, tc := range testCases {
		code := mapErrnoToCode(tc.errno)
		if code != tc.expected {
			t.Errorf("mapErrnoToCode(%v) = %s, want %s", tc.errno, code, tc.expected)
		}
	}
}
