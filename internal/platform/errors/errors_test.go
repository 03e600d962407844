package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeMessageEmpty, "message content is required")

	if !errors.Is(err, New(CodeMessageEmpty, "different message")) {
		t.Fatal("expected errors with equal codes to match")
	}
	if errors.Is(err, New(CodeMessageTargetInvalid, "other")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodePersistenceFailed, "persist message", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be found in chain")
	}
	if err.Error() != "persist message" {
		t.Fatalf("error message = %q, want %q", err.Error(), "persist message")
	}
}

func TestCodeOfTraversesWrappedChain(t *testing.T) {
	inner := New(CodeConversationNotFound, "conversation 7 not found")
	outer := fmt.Errorf("dispatch: %w", inner)

	if got := CodeOf(outer); got != CodeConversationNotFound {
		t.Fatalf("CodeOf = %q, want %q", got, CodeConversationNotFound)
	}
	if got := CodeOf(errors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf plain error = %q, want %q", got, CodeUnknown)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeAuthTokenExpired, "token expired"))

	if !HasCode(err, CodeAuthTokenExpired) {
		t.Fatal("expected wrapped code to be detected")
	}
	if HasCode(err, CodeAuthTokenInvalid) {
		t.Fatal("expected absent code not to be detected")
	}
}
