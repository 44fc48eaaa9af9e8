package errors

import (
	stderrors "errors"
	"strconv"
	"strings"
	"testing"
)

func TestHostErrorFormat(t *testing.T) {
	err := CommandUnknownError("FOO")
	if got := err.Error(); got != "[COMMAND_UNKNOWN:FOO] unknown command" {
		t.Errorf("Error() = %q", got)
	}

	_, cause := strconv.ParseUint("abc", 10, 64)
	err = CommandParamError("SET_RATIO", "abc", cause)
	if !strings.HasPrefix(err.Error(), "[COMMAND_PARAM:SET_RATIO] invalid argument 'abc': ") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !stderrors.Is(err, strconv.ErrSyntax) {
		t.Error("expected wrapped strconv.ErrSyntax")
	}
}

func TestIs(t *testing.T) {
	err := CommandStateError("START-PROGRAM", "idle")
	if !Is(err, ErrCommandState) {
		t.Error("Is(ErrCommandState) should be true")
	}
	if Is(err, ErrCommandParse) {
		t.Error("Is(ErrCommandParse) should be false")
	}
	if !IsCommand(err) {
		t.Error("IsCommand should be true")
	}
	if IsCommand(PinError("GPIO17", "read failed", nil)) {
		t.Error("IsCommand should be false for pin errors")
	}
	if Is(stderrors.New("plain"), ErrCommandState) {
		t.Error("Is should be false for a plain error")
	}
}

func TestCodeOfWrapped(t *testing.T) {
	inner := LinkIOError("write", stderrors.New("broken pipe"))
	outer := Wrap(inner, ErrLinkOpen, "reconnect")

	if CodeOf(outer) != ErrLinkOpen {
		t.Errorf("CodeOf(outer) = %s, want %s", CodeOf(outer), ErrLinkOpen)
	}
	if CodeOf(stderrors.New("plain")) != "" {
		t.Error("CodeOf(plain) should be empty")
	}
	if !Is(inner, ErrLinkIO) {
		t.Error("Is(inner, ErrLinkIO) should be true")
	}
}
