package llm

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// FallbackGenerator tries a primary generator and, when it fails with an
// exhausted retry budget or a provider-side error, retries once through a
// secondary backend.
type FallbackGenerator struct {
	primary   Generator
	secondary Generator
	logger    *zap.Logger
}

func NewFallbackGenerator(primary, secondary Generator, logger *zap.Logger) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, secondary: secondary, logger: logger}
}

// Generate implements Generator.
func (f *FallbackGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	text, err := f.primary.Generate(ctx, systemPrompt, userPrompt)
	if err == nil {
		return text, nil
	}
	if f.secondary == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	f.logger.Warn("primary model backend failed; trying fallback", zap.Error(err))

	text, ferr := f.secondary.Generate(ctx, systemPrompt, userPrompt)
	if ferr != nil {
		f.logger.Error("fallback model backend failed", zap.Error(ferr))
		return "", err
	}
	return text, nil
}
