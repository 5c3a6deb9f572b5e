package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.aimuz.me/transpeak/audiocapture"
	"go.aimuz.me/transpeak/cache"
	"go.aimuz.me/transpeak/config"
	"go.aimuz.me/transpeak/llm"
	"go.aimuz.me/transpeak/stt"
	"go.aimuz.me/transpeak/translator"
)

// loadConfig reads the config file and applies flag and environment overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if s := v.GetString("provider"); s != "" {
		cfg.Session.Provider = s
	}
	if s := v.GetString("source"); s != "" {
		cfg.Session.Source = s
	}
	if s := v.GetString("target"); s != "" {
		cfg.Session.Target = s
	}
	if _, err := cfg.LanguagePair(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openCache opens the translation cache next to the config file.
// Translation works without it, so failures are only logged.
func openCache(cfg *config.Config) *cache.Cache {
	dir := filepath.Join(filepath.Dir(cfg.Path()), "cache")
	c, err := cache.New(dir)
	if err != nil {
		slog.Warn("init cache", "error", err)
		return nil
	}
	slog.Debug("cache initialized", "path", dir)
	return c
}

// buildProvider creates the configured translation provider. The returned
// close func releases its resources.
func buildProvider(ctx context.Context, cfg *config.Config, c *cache.Cache) (translator.Provider, func() error, error) {
	switch cfg.Session.Provider {
	case config.ProviderGoogle:
		gc := translator.GoogleConfig{
			APIKey:          v.GetString("google_api_key"),
			CredentialsFile: v.GetString("google_credentials"),
		}
		if cred := cfg.GetCredentialByType(config.CredentialGoogle); cred != nil {
			if gc.APIKey == "" {
				gc.APIKey = cred.APIKey
			}
			if gc.CredentialsFile == "" {
				gc.CredentialsFile = cred.CredentialsFile
			}
		}
		g, err := translator.NewGoogle(ctx, gc)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil

	case config.ProviderLLM:
		ep := resolveLLMEndpoint(cfg)
		if ep.apiKey == "" {
			return nil, nil, fmt.Errorf("no API key: set TRANSPEAK_OPENAI_API_KEY or add a credential to %s", cfg.Path())
		}

		completer := llm.NewCompleter(ep.apiType, ep.apiKey, ep.baseURL, ep.profile.Model, ep.opts)
		return translator.NewLLM(completer, ep.profile, c), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown translation provider: %s", cfg.Session.Provider)
	}
}

type llmEndpoint struct {
	apiType string
	apiKey  string
	baseURL string
	profile translator.LLMProfile
	opts    llm.Options
}

// resolveLLMEndpoint picks the completer for the active translation profile.
// The TRANSPEAK_OPENAI_API_KEY override only applies to the OpenAI API, never
// to a credential with its own endpoint.
func resolveLLMEndpoint(cfg *config.Config) llmEndpoint {
	ep := llmEndpoint{
		apiType: config.CredentialOpenAI,
		apiKey:  v.GetString("openai_api_key"),
		profile: translator.LLMProfile{Name: "default"},
	}

	p := cfg.GetActiveTranslationProfile()
	if p == nil {
		return ep
	}
	if cred := cfg.GetCredential(p.CredentialID); cred != nil {
		ep.apiType = cred.Type
		ep.baseURL = cred.BaseURL
		if cred.Type != config.CredentialOpenAI || ep.apiKey == "" {
			ep.apiKey = cred.APIKey
		}
	}
	ep.profile = translator.LLMProfile{Name: p.Name, Model: p.Model, SystemPrompt: p.SystemPrompt}
	ep.opts = llm.Options{MaxTokens: p.MaxTokens, Temperature: p.Temperature}
	return ep
}

// buildRecognizer returns a microphone recognizer when audioInput names a
// raw float32 PCM file or FIFO, and a dictation recognizer fed from the
// prompt otherwise.
func buildRecognizer(cfg *config.Config, audioInput string, sampleRate int) (stt.Recognizer, *stt.ManualRecognizer, func() error, error) {
	if audioInput == "" {
		m := stt.NewManualRecognizer()
		return m, m, func() error { return nil }, nil
	}

	apiKey := v.GetString("openai_api_key")
	var wc stt.WhisperAPIConfig
	if sc := cfg.GetSpeechConfig(); sc != nil {
		wc.Model = sc.Model
		if cred := cfg.GetCredential(sc.CredentialID); cred != nil {
			wc.BaseURL = cred.BaseURL
			if cred.Type != config.CredentialOpenAI || apiKey == "" {
				apiKey = cred.APIKey
			}
		}
	}
	if apiKey == "" {
		if cred := cfg.GetCredentialByType(config.CredentialOpenAI); cred != nil {
			apiKey = cred.APIKey
		}
	}
	wc.APIKey = apiKey
	provider := stt.NewWhisperAPI(wc)
	if !provider.IsReady() {
		return nil, nil, nil, fmt.Errorf("speech recognition needs an OpenAI API key")
	}

	f, err := os.Open(audioInput)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open audio input: %w", err)
	}

	capturer := audiocapture.NewReaderCapturer(f, sampleRate)
	return stt.NewStreamRecognizer(capturer, provider, stt.StreamOptions{}), nil, f.Close, nil
}
