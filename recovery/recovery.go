// Package recovery decides what a row transform does when the CMM fails on
// a buffer.
package recovery

type Strategy interface {
	OnError(ctx Context, err error, location Location) Action
}

// Location identifies the failing buffer. Column is -1 when the whole row
// failed.
type Location struct {
	Row       int
	Column    int
	Space     string
	Component string
}

type Action int

const (
	ActionFail Action = iota
	// ActionFallback retries the row one pixel at a time.
	ActionFallback
	// ActionSkip leaves the failing pixels untouched.
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionFallback:
		return "fallback"
	case ActionSkip:
		return "skip"
	}
	return "fail"
}

type Context interface{ Done() <-chan struct{} }
