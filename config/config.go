// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"go.aimuz.me/transpeak/internal/types"
)

const (
	appName        = "transpeak"
	configFileName = "config.json"
)

// Translation provider names accepted in SessionSettings.Provider.
const (
	ProviderLLM    = "llm"
	ProviderGoogle = "google"
)

// SessionSettings configures the live translation session.
type SessionSettings struct {
	Source        string `json:"source"`
	Target        string `json:"target"`
	DebounceMS    int    `json:"debounce_ms"`
	FallbackVoice string `json:"fallback_voice"`
	Provider      string `json:"provider"`
	// Nil means true.
	RetranslateOnLanguageChange *bool `json:"retranslate_on_language_change,omitempty"`
}

// Config represents the application configuration.
type Config struct {
	Credentials         []types.APICredential      `json:"credentials,omitempty"`
	TranslationProfiles []types.TranslationProfile `json:"translation_profiles,omitempty"`
	SpeechConfig        *types.SpeechConfig        `json:"speech_config,omitempty"`

	Session SessionSettings `json:"session"`

	// DefaultLanguages maps a detected language code to a target code.
	DefaultLanguages map[string]string `json:"default_languages"`

	path string
}

// Load loads configuration from the user config directory.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path.
// Returns default config if file doesn't exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Save persists the configuration to the file it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := configPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}
	return c.SaveFile(path)
}

// SaveFile persists the configuration to path.
func (c *Config) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	c.path = path
	return nil
}

// Path returns the file the configuration is bound to.
func (c *Config) Path() string {
	return c.path
}

// Helper functions

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func defaultLanguages() map[string]string {
	return map[string]string{
		"en": "hi",
		"hi": "en",
		"zh": "en",
		"es": "en",
	}
}

func (c *Config) applyDefaults() {
	if c.DefaultLanguages == nil {
		c.DefaultLanguages = defaultLanguages()
	}
	s := &c.Session
	if s.Source == "" {
		s.Source = types.DefaultLanguagePair.Source.String()
	}
	if s.Target == "" {
		s.Target = types.DefaultLanguagePair.Target.String()
	}
	if s.DebounceMS <= 0 {
		s.DebounceMS = 1000
	}
	if s.FallbackVoice == "" {
		s.FallbackVoice = "en-US"
	}
	if s.Provider == "" {
		s.Provider = ProviderLLM
	}
}

func (c *Config) validate() error {
	if _, err := c.LanguagePair(); err != nil {
		return err
	}
	if _, err := types.ParseLanguageTag(c.Session.FallbackVoice); err != nil {
		return fmt.Errorf("fallback voice: %w", err)
	}
	switch c.Session.Provider {
	case ProviderLLM, ProviderGoogle:
	default:
		return fmt.Errorf("unknown translation provider: %s", c.Session.Provider)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Session Settings
// ─────────────────────────────────────────────────────────────────────────────

// LanguagePair parses the configured source and target.
func (c *Config) LanguagePair() (types.LanguagePair, error) {
	src, err := types.ParseLanguageTag(c.Session.Source)
	if err != nil {
		return types.LanguagePair{}, fmt.Errorf("source language: %w", err)
	}
	dst, err := types.ParseLanguageTag(c.Session.Target)
	if err != nil {
		return types.LanguagePair{}, fmt.Errorf("target language: %w", err)
	}
	return types.LanguagePair{Source: src, Target: dst}, nil
}

// DebounceDelay returns the quiet period before a translation starts.
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Session.DebounceMS) * time.Millisecond
}

// RetranslateOnLanguageChange reports whether pending text is translated
// again after the language pair changes.
func (c *Config) RetranslateOnLanguageChange() bool {
	v := c.Session.RetranslateOnLanguageChange
	return v == nil || *v
}

// ─────────────────────────────────────────────────────────────────────────────
// Credentials
// ─────────────────────────────────────────────────────────────────────────────

// Credential types accepted in APICredential.Type.
const (
	CredentialOpenAI           = "openai"
	CredentialOpenAICompatible = "openai-compatible"
	CredentialClaude           = "claude"
	CredentialGoogle           = "google"
)

// DefaultSpeechModel is used when a speech config names no model.
const DefaultSpeechModel = "whisper-1"

// GetCredential returns a credential by ID or name.
func (c *Config) GetCredential(ref string) *types.APICredential {
	if ref == "" {
		return nil
	}
	idx := slices.IndexFunc(c.Credentials, func(x types.APICredential) bool {
		return x.ID == ref || x.Name == ref
	})
	if idx == -1 {
		return nil
	}
	return &c.Credentials[idx]
}

// GetCredentialByType returns the first credential of the given type.
func (c *Config) GetCredentialByType(typ string) *types.APICredential {
	idx := slices.IndexFunc(c.Credentials, func(x types.APICredential) bool {
		return x.Type == typ
	})
	if idx == -1 {
		return nil
	}
	return &c.Credentials[idx]
}

func checkCredential(cred types.APICredential) error {
	if cred.Name == "" {
		return fmt.Errorf("credential name required")
	}
	switch cred.Type {
	case CredentialGoogle:
		if cred.APIKey == "" && cred.CredentialsFile == "" {
			return fmt.Errorf("google credential needs an api key or a credentials file")
		}
	case CredentialOpenAICompatible:
		if cred.BaseURL == "" {
			return fmt.Errorf("base url required for %s", cred.Type)
		}
		fallthrough
	case CredentialOpenAI, CredentialClaude:
		if cred.APIKey == "" {
			return fmt.Errorf("api key required for %s", cred.Type)
		}
	default:
		return fmt.Errorf("unknown credential type: %q", cred.Type)
	}
	return nil
}

// AddCredential validates cred, stores it under a new ID and saves.
// Names must be unique so that commands can refer to credentials by name.
func (c *Config) AddCredential(cred types.APICredential) (types.APICredential, error) {
	if err := checkCredential(cred); err != nil {
		return types.APICredential{}, err
	}
	if c.GetCredential(cred.Name) != nil {
		return types.APICredential{}, fmt.Errorf("credential %q already exists", cred.Name)
	}
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}

	c.Credentials = append(c.Credentials, cred)
	if err := c.Save(); err != nil {
		return types.APICredential{}, err
	}
	return cred, nil
}

// RemoveCredential deletes the credential named by ref unless a translation
// profile or the speech config still uses it.
func (c *Config) RemoveCredential(ref string) error {
	cred := c.GetCredential(ref)
	if cred == nil {
		return fmt.Errorf("credential not found: %s", ref)
	}
	id := cred.ID

	if p, ok := lo.Find(c.TranslationProfiles, func(p types.TranslationProfile) bool {
		return p.CredentialID == id
	}); ok {
		return fmt.Errorf("credential %s is used by profile %s", ref, p.Name)
	}
	if c.SpeechConfig != nil && c.SpeechConfig.CredentialID == id {
		return fmt.Errorf("credential %s is used by speech recognition", ref)
	}

	c.Credentials = slices.DeleteFunc(c.Credentials, func(x types.APICredential) bool {
		return x.ID == id
	})
	return c.Save()
}

// ─────────────────────────────────────────────────────────────────────────────
// Translation profiles
// ─────────────────────────────────────────────────────────────────────────────

// GetActiveTranslationProfile returns the currently active translation profile.
// The first profile is used when none is marked active.
func (c *Config) GetActiveTranslationProfile() *types.TranslationProfile {
	for i := range c.TranslationProfiles {
		if c.TranslationProfiles[i].Active {
			return &c.TranslationProfiles[i]
		}
	}
	if len(c.TranslationProfiles) > 0 {
		return &c.TranslationProfiles[0]
	}
	return nil
}

// AddTranslationProfile stores a profile for the LLM provider. CredentialID
// may name the credential instead; it is stored as the ID. The first
// profile, or one marked Active, becomes the active profile.
func (c *Config) AddTranslationProfile(profile types.TranslationProfile) (types.TranslationProfile, error) {
	if profile.Name == "" {
		return types.TranslationProfile{}, fmt.Errorf("profile name required")
	}
	if c.findProfile(profile.Name) != -1 {
		return types.TranslationProfile{}, fmt.Errorf("profile %q already exists", profile.Name)
	}
	cred := c.GetCredential(profile.CredentialID)
	if cred == nil {
		return types.TranslationProfile{}, fmt.Errorf("credential not found: %q", profile.CredentialID)
	}
	if cred.Type == CredentialGoogle {
		return types.TranslationProfile{}, fmt.Errorf("profile needs an LLM credential, %s is %s", cred.Name, cred.Type)
	}
	profile.CredentialID = cred.ID

	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.MaxTokens == 0 {
		profile.MaxTokens = types.DefaultMaxTokens
	}
	if profile.Temperature == 0 {
		profile.Temperature = types.DefaultTemperature
	}

	activate := profile.Active || len(c.TranslationProfiles) == 0
	profile.Active = false
	c.TranslationProfiles = append(c.TranslationProfiles, profile)
	if activate {
		c.activateProfile(len(c.TranslationProfiles) - 1)
	}
	if err := c.Save(); err != nil {
		return types.TranslationProfile{}, err
	}
	return c.TranslationProfiles[len(c.TranslationProfiles)-1], nil
}

// UseTranslationProfile makes the profile named by ref (ID or name) active.
func (c *Config) UseTranslationProfile(ref string) error {
	idx := c.findProfile(ref)
	if idx == -1 {
		return fmt.Errorf("profile not found: %s", ref)
	}
	c.activateProfile(idx)
	return c.Save()
}

func (c *Config) findProfile(ref string) int {
	return slices.IndexFunc(c.TranslationProfiles, func(p types.TranslationProfile) bool {
		return p.ID == ref || p.Name == ref
	})
}

func (c *Config) activateProfile(idx int) {
	for i := range c.TranslationProfiles {
		c.TranslationProfiles[i].Active = i == idx
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Speech recognition
// ─────────────────────────────────────────────────────────────────────────────

// GetSpeechConfig returns the speech configuration, or nil if unset.
func (c *Config) GetSpeechConfig() *types.SpeechConfig {
	return c.SpeechConfig
}

// SetSpeechConfig points speech recognition at the credential named by
// credRef. Whisper is only reachable through OpenAI-style endpoints.
func (c *Config) SetSpeechConfig(credRef, model string) error {
	cred := c.GetCredential(credRef)
	if cred == nil {
		return fmt.Errorf("credential not found: %q", credRef)
	}
	if cred.Type != CredentialOpenAI && cred.Type != CredentialOpenAICompatible {
		return fmt.Errorf("speech recognition needs an openai credential, %s is %s", cred.Name, cred.Type)
	}
	if model == "" {
		model = DefaultSpeechModel
	}

	c.SpeechConfig = &types.SpeechConfig{CredentialID: cred.ID, Model: model}
	return c.Save()
}
