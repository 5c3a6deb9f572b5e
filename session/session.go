// Package session binds one language pair to a translation provider.
//
// A Session is Active from construction until Invalidate is called, after
// which it refuses to translate. Sessions are never reactivated: a language
// change is handled by invalidating the current session and constructing a
// new one.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"go.aimuz.me/transpeak/internal/types"
	"go.aimuz.me/transpeak/translator"
)

// ErrNotActive is returned when translating on a session that is not Active.
var ErrNotActive = errors.New("session not active")

// State is the lifecycle state of a Session.
type State int

const (
	Uninitialized State = iota
	Active
	Invalidated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Invalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TranslationError reports a failed translation, either because the
// session was not Active or because the provider failed.
type TranslationError struct {
	SessionID string
	Pair      types.LanguagePair
	Err       error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate %s (session %s): %v", e.Pair, e.SessionID, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Session is one configuration of a translation provider.
// The zero value is Uninitialized.
type Session struct {
	id       string
	pair     types.LanguagePair
	provider translator.Provider

	mu    sync.RWMutex
	state State
}

// Factory constructs an Active session for pair.
type Factory func(pair types.LanguagePair, provider translator.Provider) *Session

// New creates an Active session bound to pair.
func New(pair types.LanguagePair, provider translator.Provider) *Session {
	return &Session{
		id:       uuid.NewString(),
		pair:     pair,
		provider: provider,
		state:    Active,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Pair returns the language pair the session is bound to.
func (s *Session) Pair() types.LanguagePair { return s.pair }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Active reports whether the session can translate.
func (s *Session) Active() bool {
	return s.State() == Active
}

// Invalidate ends the session. It is safe to call more than once.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Invalidated
}

// Translate translates text for the session's pair.
// Errors are always *TranslationError.
func (s *Session) Translate(ctx context.Context, text string) (types.TranslateResult, error) {
	if !s.Active() {
		return types.TranslateResult{}, s.fail(ErrNotActive)
	}

	result, err := s.provider.Translate(ctx, types.TranslateRequest{
		Text:       text,
		SourceLang: s.pair.Source.String(),
		TargetLang: s.pair.Target.String(),
	})
	if err != nil {
		return types.TranslateResult{}, s.fail(err)
	}
	return result, nil
}

func (s *Session) fail(err error) *TranslationError {
	return &TranslationError{SessionID: s.id, Pair: s.pair, Err: err}
}
