// SPDX-License-Identifier: GPL-2.0-or-later

package sourcemodel

import (
	"errors"
	"testing"
)

func TestDecodeErrorMessageIncludesKindAndCause(t *testing.T) {
	cause := errors.New("bad magic")
	de := newDecodeError(NotAStudioModel, cause)
	want := "not a studio model: bad magic"
	if de.Error() != want {
		t.Errorf("Error() = %q, want %q", de.Error(), want)
	}
	if !errors.Is(de, cause) {
		t.Error("errors.Is(de, cause) = false, want true (Unwrap)")
	}
}

func TestIsKindMatchesWrappedDecodeError(t *testing.T) {
	err := newDecodeError(ChecksumMismatch, errors.New("mismatch"))
	var wrapped error = err
	if !IsKind(wrapped, ChecksumMismatch) {
		t.Error("IsKind(ChecksumMismatch) = false, want true")
	}
	if IsKind(wrapped, Malformed) {
		t.Error("IsKind(Malformed) = true, want false")
	}
}

func TestIsKindFalseForPlainError(t *testing.T) {
	if IsKind(errors.New("plain"), NotAStudioModel) {
		t.Error("IsKind() on a plain error = true, want false")
	}
}

func TestErrorKindStrings(t *testing.T) {
	cases := map[ErrorKind]string{
		NotAStudioModel:        "not a studio model",
		MissingRequiredSibling: "missing required sibling",
		ChecksumMismatch:       "checksum mismatch",
		Malformed:              "malformed",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(kind), got, want)
		}
	}
}
