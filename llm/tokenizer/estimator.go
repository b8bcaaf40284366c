package tokenizer

import (
	"unicode"
	"unicode/utf8"

	"github.com/BaSui01/agentorch/types"
	"go.uber.org/zap"
)

// Tokenizer counts tokens in text.
type Tokenizer interface {
	CountTokens(text string) (int, error)
	Name() string
}

// EstimatorTokenizer is a character-count-based token estimator.
// CJK runs at ~1.5 chars/token, everything else at ~4 chars/token.
type EstimatorTokenizer struct{}

// NewEstimatorTokenizer creates a generic estimator.
func NewEstimatorTokenizer() *EstimatorTokenizer {
	return &EstimatorTokenizer{}
}

func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	totalChars := utf8.RuneCountInString(text)
	cjkCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		}
	}

	estimated := int(float64(cjkCount)/1.5 + float64(totalChars-cjkCount)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated, nil
}

func (e *EstimatorTokenizer) Name() string {
	return "estimator"
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// UsageEstimator fills in token usage when a provider reports none.
// The primary tokenizer is tried first; on error the estimator is used.
type UsageEstimator struct {
	primary  Tokenizer
	fallback Tokenizer
	logger   *zap.Logger
}

// NewUsageEstimator builds an estimator; a nil primary uses only the
// character estimator.
func NewUsageEstimator(primary Tokenizer, logger *zap.Logger) *UsageEstimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageEstimator{
		primary:  primary,
		fallback: NewEstimatorTokenizer(),
		logger:   logger.With(zap.String("component", "usage_estimator")),
	}
}

// Estimate returns usage for input and output text, flagged as estimated.
func (u *UsageEstimator) Estimate(input, output string) types.TokenUsage {
	return types.TokenUsage{
		InputTokens:  u.count(input),
		OutputTokens: u.count(output),
		Estimated:    true,
	}
}

func (u *UsageEstimator) count(text string) int {
	if u.primary != nil {
		n, err := u.primary.CountTokens(text)
		if err == nil {
			return n
		}
		u.logger.Debug("primary tokenizer failed, using estimator",
			zap.String("tokenizer", u.primary.Name()), zap.Error(err))
	}
	n, _ := u.fallback.CountTokens(text)
	return n
}
