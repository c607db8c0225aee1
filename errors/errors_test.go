package errors_test

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/ctf/errors"
)

func TestErrorString(t *testing.T) {
	err := errors.New(errors.PhaseCreate, errors.KindDuplicateName).
		Path("dict", "struct foo").
		Detail("already defined").
		Build()

	s := err.Error()
	if !strings.Contains(s, "[create]") {
		t.Errorf("missing phase in %q", s)
	}
	if !strings.Contains(s, "duplicate_name") {
		t.Errorf("missing kind in %q", s)
	}
	if !strings.Contains(s, "dict.struct foo") {
		t.Errorf("missing path in %q", s)
	}
	if !strings.Contains(s, "already defined") {
		t.Errorf("missing detail in %q", s)
	}
}

func TestErrorIs(t *testing.T) {
	err := errors.DuplicateName("foo")

	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseCreate, Kind: errors.KindDuplicateName}) {
		t.Error("expected match on phase+kind")
	}
	if stderrors.Is(err, &errors.Error{Phase: errors.PhaseCreate, Kind: errors.KindInvalidPayload}) {
		t.Error("unexpected match on different kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := stderrors.New("short read")
	err := errors.Parse(errors.PhaseOpen, "header", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected unwrap to reach the cause")
	}
	if !strings.Contains(err.Error(), "short read") {
		t.Errorf("cause missing from %q", err.Error())
	}
}

func TestTruncatedDetail(t *testing.T) {
	err := errors.Truncated(errors.PhaseOpen, "type record", 3, 12)
	s := err.Error()
	if !strings.Contains(s, "have 3") || !strings.Contains(s, "want 12") {
		t.Errorf("unexpected detail: %q", s)
	}
}

func TestInvalidIDDetail(t *testing.T) {
	err := errors.InvalidID(errors.PhaseLookup, 9999)
	if !strings.Contains(err.Error(), "9999") {
		t.Errorf("id missing from %q", err.Error())
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLookup, Kind: errors.KindInvalidID}) {
		t.Error("expected invalid_id match")
	}
}
