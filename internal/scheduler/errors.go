package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownIdentity      = errors.New("unknown task identity")
	ErrCyclicDependency     = errors.New("cyclic dependency")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ScheduleError carries the failure kind plus the identities involved.
// Use errors.Is against the Err* sentinels to classify it.
type ScheduleError struct {
	Kind error
	IDs  []string
	Msg  string
}

func (e *ScheduleError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.IDs, ", "))
	}
	return b.String()
}

func (e *ScheduleError) Unwrap() error { return e.Kind }

func unknownIdentity(id string, alphabet Alphabet) error {
	return &ScheduleError{
		Kind: ErrUnknownIdentity,
		IDs:  []string{id},
		Msg:  fmt.Sprintf("%q is not in alphabet %q", id, string(alphabet)),
	}
}

func cyclic(unfinished []string, msg string) error {
	return &ScheduleError{Kind: ErrCyclicDependency, IDs: unfinished, Msg: msg}
}

func invalidf(format string, args ...any) error {
	return &ScheduleError{Kind: ErrInvalidConfiguration, Msg: fmt.Sprintf(format, args...)}
}
