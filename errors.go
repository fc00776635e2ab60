// SPDX-License-Identifier: GPL-2.0-or-later

package sourcemodel

import "github.com/pkg/errors"

// ErrorKind discriminates the four fatal decode outcomes (spec §7).
type ErrorKind int

const (
	// NotAStudioModel is the MDL magic mismatch or version outside 44..49.
	NotAStudioModel ErrorKind = iota
	// MissingRequiredSibling is VVD/VTX absent, or their magic/version invalid.
	MissingRequiredSibling
	// ChecksumMismatch is MDL/VVD/VTX checksums disagreeing.
	ChecksumMismatch
	// Malformed is an offset or count failing a bounds check on MDL/VVD/VTX.
	Malformed
)

func (k ErrorKind) String() string {
	switch k {
	case NotAStudioModel:
		return "not a studio model"
	case MissingRequiredSibling:
		return "missing required sibling"
	case ChecksumMismatch:
		return "checksum mismatch"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecodeError is the only error type Decode returns; every fatal failure
// carries one of the four discriminated kinds (spec §7).
type DecodeError struct {
	Kind ErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newDecodeError(kind ErrorKind, err error) *DecodeError {
	return &DecodeError{Kind: kind, Err: err}
}

// IsKind reports whether err is a *DecodeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
