package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.aimuz.me/transpeak/cache"
	"go.aimuz.me/transpeak/internal/types"
	"go.aimuz.me/transpeak/llm"
)

// DefaultSystemPrompt is used when a profile does not set one.
const DefaultSystemPrompt = "You are a professional translator. Translate the user's text into the target language directly. Output only the translated text."

// defaultLLMLanguages is the catalog reported by LLM providers, which have none of their own.
var defaultLLMLanguages = []string{
	"ar-AE", "de-DE", "en-GB", "en-US", "es-ES", "fr-FR", "hi-IN", "id-ID", "it-IT",
	"ja-JP", "ko-KR", "nl-NL", "pl-PL", "pt-BR", "ru-RU", "th-TH", "tr-TR", "uk-UA",
	"vi-VN", "zh-CN", "zh-TW",
}

// LLMProfile holds the minimal config needed for translation.
type LLMProfile struct {
	Name         string
	Model        string
	SystemPrompt string
}

// LLM translates through a chat completion model, with optional caching.
// Zero value is not useful; create via NewLLM.
type LLM struct {
	completer llm.Completer
	profile   LLMProfile
	cache     *cache.Cache
	languages []types.LanguageTag
}

// NewLLM creates an LLM provider. c may be nil to disable caching.
func NewLLM(completer llm.Completer, profile LLMProfile, c *cache.Cache) *LLM {
	if profile.SystemPrompt == "" {
		profile.SystemPrompt = DefaultSystemPrompt
	}

	langs := make([]types.LanguageTag, 0, len(defaultLLMLanguages))
	for _, s := range defaultLLMLanguages {
		langs = append(langs, types.MustParseLanguageTag(s))
	}

	return &LLM{
		completer: completer,
		profile:   profile,
		cache:     c,
		languages: langs,
	}
}

func (t *LLM) Name() string { return "llm" }

// SupportedLanguages returns the built-in catalog.
func (t *LLM) SupportedLanguages(_ context.Context) ([]types.LanguageTag, error) {
	return append([]types.LanguageTag(nil), t.languages...), nil
}

// Translate performs translation using the completer, with cache lookup.
func (t *LLM) Translate(ctx context.Context, req types.TranslateRequest) (types.TranslateResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return types.TranslateResult{}, ErrEmptyText
	}

	key := t.cacheKey(req)
	if result, ok := t.getCached(key); ok {
		return result, nil
	}

	msgs := buildTranslateMessages(t.profile.SystemPrompt, req)

	text, usage, err := t.completer.Complete(ctx, msgs)
	if err != nil {
		return types.TranslateResult{}, fmt.Errorf("translate: %w", err)
	}
	text = strings.TrimSpace(text)

	t.setCache(key, text, usage)

	return types.TranslateResult{Text: text, Usage: usage}, nil
}

func buildTranslateMessages(systemPrompt string, req types.TranslateRequest) []llm.Message {
	content := fmt.Sprintf(
		"please translate the following text from %s to %s:\n\n%s",
		req.SourceLang, req.TargetLang, req.Text,
	)

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: content},
	}
}

func (t *LLM) cacheKey(req types.TranslateRequest) string {
	return cache.GenerateKey(t.profile.Name, t.profile.Model, req.SourceLang, req.TargetLang, req.Text)
}

func (t *LLM) getCached(key string) (types.TranslateResult, bool) {
	if t.cache == nil {
		return types.TranslateResult{}, false
	}

	entry, found := t.cache.Get(key)
	if !found {
		return types.TranslateResult{}, false
	}

	return types.TranslateResult{
		Text: entry.Text,
		Usage: types.Usage{
			PromptTokens:     entry.Usage.PromptTokens,
			CompletionTokens: entry.Usage.CompletionTokens,
			TotalTokens:      entry.Usage.TotalTokens,
			CacheHit:         true,
		},
	}, true
}

func (t *LLM) setCache(key, text string, usage types.Usage) {
	if t.cache == nil || text == "" {
		return
	}

	entry := &cache.Entry{
		Text: text,
		Usage: cache.Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
		CreatedAt: time.Now(),
	}

	// Ignore error - caching is best effort
	_ = t.cache.Set(key, entry, cache.DefaultTTL)
}
