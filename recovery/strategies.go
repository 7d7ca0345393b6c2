package recovery

import (
	"fmt"
	"sync"
)

// StrictStrategy implements a fail-fast recovery strategy.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy records every error and asks for a per-pixel retry. A
// pixel that still fails is skipped.
type LenientStrategy struct {
	mu     sync.Mutex
	Errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx Context, err error, location Location) Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, fmt.Errorf("[%s %s] row %d column %d: %w",
		location.Space, location.Component, location.Row, location.Column, err))
	if location.Column >= 0 {
		return ActionSkip
	}
	return ActionFallback
}

// Reported returns a copy of the recorded errors.
func (s *LenientStrategy) Reported() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.Errors...)
}
