package xddgo

import (
	"testing"
	"time"
)

func TestNewRunContextNoDeadline(t *testing.T) {
	rc := NewRunContext(RunOptions{})
	if rc.DeadlineExceeded() {
		t.Error("expected no deadline to mean DeadlineExceeded is always false")
	}
	if rc.ShouldStop() {
		t.Error("fresh RunContext should not be stopped")
	}
}

func TestRunContextDeadlineExceeded(t *testing.T) {
	rc := NewRunContext(RunOptions{Runtime: 5 * time.Millisecond})
	if rc.DeadlineExceeded() {
		t.Error("deadline should not be exceeded immediately")
	}
	time.Sleep(10 * time.Millisecond)
	if !rc.DeadlineExceeded() {
		t.Error("expected deadline to be exceeded after Runtime has elapsed")
	}
	if !rc.ShouldStop() {
		t.Error("expected ShouldStop to reflect the exceeded deadline")
	}
}

func TestRunContextCancel(t *testing.T) {
	rc := NewRunContext(RunOptions{})
	if rc.Canceled() {
		t.Error("fresh RunContext should not be canceled")
	}
	rc.Cancel()
	if !rc.Canceled() {
		t.Error("expected Canceled to be true after Cancel")
	}
	if !rc.ShouldStop() {
		t.Error("expected ShouldStop to be true after Cancel")
	}
}
