package nn

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("capsule configuration error")
	// ErrShapeMismatch is matched by every *ShapeError.
	ErrShapeMismatch = errors.New("capsule shape mismatch")
)

// ConfigError reports an invalid construction-time setting.
type ConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("capsule config: %s=%d: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// ShapeError reports a tensor whose shape does not match what the layer was built for.
// A -1 in Want matches any size.
type ShapeError struct {
	Op   string
	Want []int
	Got  []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected shape %v, got %v", e.Op, e.Want, e.Got)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

func checkShape(op string, got []int, want ...int) error {
	if len(got) != len(want) {
		return &ShapeError{Op: op, Want: want, Got: got}
	}
	for i, w := range want {
		if w >= 0 && got[i] != w {
			return &ShapeError{Op: op, Want: want, Got: got}
		}
	}
	return nil
}
