package translator

import (
	"context"
	"fmt"
	"html"
	"strings"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"go.aimuz.me/transpeak/internal/types"
)

// GoogleConfig configures the Google Cloud Translation provider.
// Either CredentialsFile or APIKey may be set; with neither, default credentials are used.
type GoogleConfig struct {
	CredentialsFile string
	APIKey          string
	Model           string // "nmt" or "base"; empty uses the service default
}

// Google translates through Google Cloud Translation (v2 API).
type Google struct {
	client *translate.Client
	model  string
}

// NewGoogle creates a client. Call Close when done.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google translate client: %w", err)
	}
	return &Google{client: client, model: cfg.Model}, nil
}

func (g *Google) Name() string { return "google" }

// SupportedLanguages returns the languages the service can translate into.
func (g *Google) SupportedLanguages(ctx context.Context) ([]types.LanguageTag, error) {
	langs, err := g.client.SupportedLanguages(ctx, language.English)
	if err != nil {
		return nil, fmt.Errorf("list supported languages: %w", err)
	}

	out := make([]types.LanguageTag, 0, len(langs))
	for _, l := range langs {
		tag, err := types.ParseLanguageTag(l.Tag.String())
		if err != nil {
			continue
		}
		out = append(out, tag)
	}
	return out, nil
}

// Translate translates a single text.
func (g *Google) Translate(ctx context.Context, req types.TranslateRequest) (types.TranslateResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return types.TranslateResult{}, ErrEmptyText
	}

	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return types.TranslateResult{}, fmt.Errorf("invalid target language: %w", err)
	}

	opts := &translate.Options{Format: translate.Text, Model: g.model}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		source, err := language.Parse(req.SourceLang)
		if err != nil {
			return types.TranslateResult{}, fmt.Errorf("invalid source language: %w", err)
		}
		opts.Source = source
	}

	translations, err := g.client.Translate(ctx, []string{req.Text}, target, opts)
	if err != nil {
		return types.TranslateResult{}, fmt.Errorf("translate: %w", err)
	}
	if len(translations) == 0 {
		return types.TranslateResult{}, fmt.Errorf("no translation returned")
	}

	return types.TranslateResult{Text: html.UnescapeString(translations[0].Text)}, nil
}

// Close releases the underlying client.
func (g *Google) Close() error {
	return g.client.Close()
}
