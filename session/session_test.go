package session

import (
	"context"
	"errors"
	"testing"

	"go.aimuz.me/transpeak/internal/types"
)

type stubProvider struct {
	text string
	err  error
	got  types.TranslateRequest
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) SupportedLanguages(context.Context) ([]types.LanguageTag, error) {
	return nil, nil
}

func (p *stubProvider) Translate(_ context.Context, req types.TranslateRequest) (types.TranslateResult, error) {
	p.got = req
	return types.TranslateResult{Text: p.text}, p.err
}

func TestSession_Lifecycle(t *testing.T) {
	var zero Session
	if zero.State() != Uninitialized {
		t.Errorf("zero value state = %v, want %v", zero.State(), Uninitialized)
	}

	s := New(types.DefaultLanguagePair, &stubProvider{})
	if s.State() != Active {
		t.Errorf("new session state = %v, want %v", s.State(), Active)
	}
	if s.ID() == "" {
		t.Error("session ID should not be empty")
	}

	s.Invalidate()
	if s.State() != Invalidated {
		t.Errorf("state after Invalidate = %v, want %v", s.State(), Invalidated)
	}

	s.Invalidate()
	if s.State() != Invalidated {
		t.Errorf("state after second Invalidate = %v, want %v", s.State(), Invalidated)
	}

	if New(types.DefaultLanguagePair, nil).ID() == s.ID() {
		t.Error("session IDs should be unique")
	}
}

func TestSession_Translate(t *testing.T) {
	providerErr := errors.New("network down")

	tests := []struct {
		name       string
		provider   *stubProvider
		invalidate bool
		uninit     bool
		wantText   string
		wantErr    error
	}{
		{
			name:     "active session",
			provider: &stubProvider{text: "नमस्ते"},
			wantText: "नमस्ते",
		},
		{
			name:     "provider failure",
			provider: &stubProvider{err: providerErr},
			wantErr:  providerErr,
		},
		{
			name:       "invalidated session",
			provider:   &stubProvider{text: "unused"},
			invalidate: true,
			wantErr:    ErrNotActive,
		},
		{
			name:     "uninitialized session",
			provider: &stubProvider{text: "unused"},
			uninit:   true,
			wantErr:  ErrNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(types.DefaultLanguagePair, tt.provider)
			if tt.uninit {
				s = &Session{provider: tt.provider}
			}
			if tt.invalidate {
				s.Invalidate()
			}

			result, err := s.Translate(context.Background(), "Hello")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Translate() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				var terr *TranslationError
				if !errors.As(err, &terr) {
					t.Errorf("error %T is not *TranslationError", err)
				}
				if tt.wantErr == ErrNotActive && tt.provider.got.Text != "" {
					t.Error("provider called on inactive session")
				}
			}
			if result.Text != tt.wantText {
				t.Errorf("Translate() text = %q, want %q", result.Text, tt.wantText)
			}
		})
	}
}

func TestSession_TranslateRequest(t *testing.T) {
	p := &stubProvider{text: "Hola"}
	pair := types.LanguagePair{
		Source: types.LanguageTag{Code: "en", Region: "US"},
		Target: types.LanguageTag{Code: "es"},
	}

	if _, err := New(pair, p).Translate(context.Background(), "Hello"); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	want := types.TranslateRequest{Text: "Hello", SourceLang: "en-US", TargetLang: "es"}
	if p.got != want {
		t.Errorf("provider request = %+v, want %+v", p.got, want)
	}
}
