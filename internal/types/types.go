// Package types provides shared type definitions for the application.
package types

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageTag identifies a language and an optional region.
// Region is empty when the tag names no region.
type LanguageTag struct {
	Code   string `json:"code"`
	Region string `json:"region,omitempty"`
}

// ParseLanguageTag parses a BCP 47 tag such as "es", "es-ES" or "zh_TW".
// The region is kept only when s states it explicitly.
func ParseLanguageTag(s string) (LanguageTag, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))
	if s == "" {
		return LanguageTag{}, fmt.Errorf("empty language tag")
	}

	tag, err := language.Parse(s)
	if err != nil {
		return LanguageTag{}, fmt.Errorf("parse language tag %q: %w", s, err)
	}

	base, conf := tag.Base()
	if conf == language.No {
		return LanguageTag{}, fmt.Errorf("unknown language in tag %q", s)
	}

	lt := LanguageTag{Code: base.String()}
	if region, conf := tag.Region(); conf == language.Exact {
		lt.Region = region.String()
	}
	return lt, nil
}

// MustParseLanguageTag is like ParseLanguageTag but panics on error.
func MustParseLanguageTag(s string) LanguageTag {
	lt, err := ParseLanguageTag(s)
	if err != nil {
		panic(err)
	}
	return lt
}

// String returns "code" or "code-REGION".
func (t LanguageTag) String() string {
	if t.Region == "" {
		return t.Code
	}
	return t.Code + "-" + t.Region
}

// IsZero reports whether the tag is unset.
func (t LanguageTag) IsZero() bool {
	return t.Code == ""
}

// Tag converts to an x/text language tag. Unparseable values map to Und.
func (t LanguageTag) Tag() language.Tag {
	tag, err := language.Parse(t.String())
	if err != nil {
		return language.Und
	}
	return tag
}

// DisplayName returns the English name, e.g. "Spanish (Spain)".
func (t LanguageTag) DisplayName() string {
	name := display.English.Tags().Name(t.Tag())
	if name == "" {
		return t.String()
	}
	return name
}

// LanguagePair is an immutable source/target combination.
type LanguagePair struct {
	Source LanguageTag `json:"source"`
	Target LanguageTag `json:"target"`
}

// WithSource returns a copy of p with the source replaced.
func (p LanguagePair) WithSource(src LanguageTag) LanguagePair {
	p.Source = src
	return p
}

// WithTarget returns a copy of p with the target replaced.
func (p LanguagePair) WithTarget(dst LanguageTag) LanguagePair {
	p.Target = dst
	return p
}

func (p LanguagePair) String() string {
	return p.Source.String() + "->" + p.Target.String()
}

// DefaultLanguagePair is used when nothing is configured: English (US) to Hindi (India).
var DefaultLanguagePair = LanguagePair{
	Source: LanguageTag{Code: "en", Region: "US"},
	Target: LanguageTag{Code: "hi", Region: "IN"},
}

// ─────────────────────────────────────────────────────────────────────────────
// Translation Types
// ─────────────────────────────────────────────────────────────────────────────

// DefaultMaxTokens is the default max tokens if not specified.
const DefaultMaxTokens = 1000

// DefaultTemperature is the default temperature if not specified.
const DefaultTemperature = 0.3

// TranslateRequest is one text to translate for a language pair.
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

// DetectResult represents the result of language detection.
type DetectResult struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	DefaultTarget string `json:"defaultTarget"`
}

// Usage represents token usage statistics from LLM API calls.
type Usage struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	CacheHit         bool `json:"cacheHit"`
}

// TranslateResult represents the result of a translation request.
type TranslateResult struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Configuration Types
// ─────────────────────────────────────────────────────────────────────────────

// APICredential holds the key for one API account.
type APICredential struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // "openai", "openai-compatible", "claude", "google"
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	// CredentialsFile is a service account file, used by "google".
	CredentialsFile string `json:"credentials_file,omitempty"`
}

// TranslationProfile binds a credential to model settings.
type TranslationProfile struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CredentialID string  `json:"credential_id"`
	Model        string  `json:"model,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	Active       bool    `json:"active"`
}

// SpeechConfig configures speech recognition.
type SpeechConfig struct {
	CredentialID string `json:"credential_id"`
	Model        string `json:"model,omitempty"`
}
