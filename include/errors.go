package include

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("include configuration error")
	// ErrChainOrder matches every *ChainOrderError.
	ErrChainOrder = errors.New("include chain order error")
)

// ConfigurationError reports a step whose types cannot be bound: the
// selector does not match the declared types, or the navigated-from entity
// has no relation of the target type. Retrying the same step fails again.
type ConfigurationError struct {
	Key    Key
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("include %s: %s", e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(key Key, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// ChainOrderError reports a continuation step applied where the preceding
// step did not load its Previous type.
type ChainOrderError struct {
	Step  Step
	Index int    // position of the step in its list, -1 when unknown
	Tail  string // field type loaded by the preceding step, empty if none
}

func (e *ChainOrderError) Error() string {
	at := ""
	if e.Index >= 0 {
		at = fmt.Sprintf(" at position %d", e.Index)
	}
	if e.Tail == "" {
		return fmt.Sprintf("include %s%s: continuation without a preceding include", e.Step.Key(), at)
	}
	return fmt.Sprintf("include %s%s: continues %s but the preceding step loaded %s",
		e.Step.Key(), at, typeName(e.Step.Previous), e.Tail)
}

func (e *ChainOrderError) Is(target error) bool { return target == ErrChainOrder }
