// Package translator defines the translation provider contract and its implementations.
package translator

import (
	"context"
	"errors"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"go.aimuz.me/transpeak/internal/types"
)

// ErrEmptyText is returned when there is nothing to translate.
var ErrEmptyText = errors.New("empty text")

// Provider translates text and reports which languages it supports.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// SupportedLanguages returns the provider's current language catalog.
	SupportedLanguages(ctx context.Context) ([]types.LanguageTag, error)

	// Translate translates req.Text from req.SourceLang to req.TargetLang.
	Translate(ctx context.Context, req types.TranslateRequest) (types.TranslateResult, error)
}

// SortLanguages removes duplicates and orders tags by English display name.
func SortLanguages(tags []types.LanguageTag) []types.LanguageTag {
	out := lo.UniqBy(tags, func(t types.LanguageTag) string { return t.String() })

	c := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b types.LanguageTag) int {
		if n := c.CompareString(a.DisplayName(), b.DisplayName()); n != 0 {
			return n
		}
		return c.CompareString(a.String(), b.String())
	})
	return out
}
