package model

import (
	"errors"
	"fmt"
)

// Error kinds. Callers branch on them with errors.Is.
var (
	// ErrConfig marks caller-fixable configuration problems
	ErrConfig = errors.New("configuration error")

	// ErrState marks calls made in the wrong lifecycle state (transform
	// before fit, training twice). It is also a configuration error.
	ErrState = fmt.Errorf("%w: invalid state", ErrConfig)

	// ErrInvariant marks internal consistency violations, i.e. bugs
	ErrInvariant = errors.New("internal invariant violation")
)
