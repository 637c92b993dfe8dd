// Package extract turns free-form habit text into structured items.
package extract

import (
	"context"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/julianstephens/habitloop/internal/constants"
	apperrors "github.com/julianstephens/habitloop/internal/errors"
	"github.com/julianstephens/habitloop/internal/models"
)

// Extractor parses text into zero or more items. An empty result is not an
// error; failures are reported as upstream extraction errors.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]models.ParsedItem, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, text string) ([]models.ParsedItem, error)

func (f ExtractorFunc) Extract(ctx context.Context, text string) ([]models.ParsedItem, error) {
	return f(ctx, text)
}

var lower = cases.Lower(language.Und)

var unitAliases = map[string]string{
	"hr":      "hours",
	"hrs":     "hours",
	"hour":    "hours",
	"h":       "hours",
	"min":     "minutes",
	"mins":    "minutes",
	"minute":  "minutes",
	"m":       "minutes",
	"sec":     "seconds",
	"secs":    "seconds",
	"mi":      "miles",
	"mile":    "miles",
	"km":      "kilometers",
	"kms":     "kilometers",
	"glass":   "glasses",
	"page":    "pages",
	"pg":      "pages",
	"pgs":     "pages",
	"time":    "times",
	"x":       "times",
	"rep":     "reps",
	"step":    "steps",
	"session": "sessions",
}

func fold(s string) string {
	return lower.String(strings.TrimSpace(norm.NFC.String(s)))
}

// NormalizeUnit lower-cases u and maps common abbreviations to one spelling.
func NormalizeUnit(u string) string {
	u = fold(u)
	if alias, ok := unitAliases[u]; ok {
		return alias
	}
	return u
}

// NormalizeCategory maps c onto a known category, falling back to other.
func NormalizeCategory(c string) constants.Category {
	c = strings.NewReplacer("-", "_", " ", "_").Replace(fold(c))
	cat := constants.Category(c)
	if cat.IsValid() {
		return cat
	}
	return constants.CategoryOther
}

// Normalize cleans each item, keeping order, and drops items without an
// activity.
func Normalize(items []models.ParsedItem) []models.ParsedItem {
	out := make([]models.ParsedItem, 0, len(items))
	for _, item := range items {
		item.Activity = fold(item.Activity)
		if item.Activity == "" {
			continue
		}
		if item.Quantity <= 0 || math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) {
			item.Quantity = 1
		}
		item.Unit = NormalizeUnit(item.Unit)
		item.Category = NormalizeCategory(string(item.Category))
		switch {
		case math.IsNaN(item.Confidence) || item.Confidence < 0:
			item.Confidence = 0
		case item.Confidence > 1:
			item.Confidence = 1
		}
		out = append(out, item)
	}
	return out
}

func upstream(op, msg string, err error) error {
	return apperrors.E(apperrors.KindUpstreamExtraction, op, msg, err)
}
