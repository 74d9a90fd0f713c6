package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deckhaven/cardsearch/internal/core/domain"
	"github.com/deckhaven/cardsearch/internal/core/ports"
)

// Extraction attempt states, logged as the state machine advances:
// pending -> calling -> {success | waiting -> calling | failed}.
const (
	stateCalling = "calling"
	stateWaiting = "waiting"
	stateSuccess = "success"
	stateFailed  = "failed"
)

// ExtractionConfig bounds the rate-limit retry loop and confidence handling.
type ExtractionConfig struct {
	MaxRetries      int
	DefaultWait     time.Duration
	WaitBuffer      time.Duration
	InheritDiscount float64
}

func (c ExtractionConfig) normalize() ExtractionConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DefaultWait <= 0 {
		c.DefaultWait = 30 * time.Second
	}
	if c.WaitBuffer <= 0 {
		c.WaitBuffer = 2 * time.Second
	}
	if c.InheritDiscount <= 0 || c.InheritDiscount > 1 {
		c.InheritDiscount = 0.8
	}
	return c
}

// ExtractionOrchestrator drives one LLM tag extraction per card. It is the
// only component with retry logic, and it retries exactly one error class:
// rate limiting, using the provider's wait hint plus a safety buffer. Parse
// and validation failures surface immediately since retrying an identical
// malformed response only wastes quota. Persistence is idempotent: re-running
// extraction replaces the card's tag rows.
type ExtractionOrchestrator struct {
	cards     ports.CardRepository
	taxonomy  ports.TagTaxonomy
	generator ports.TagGenerator
	store     ports.CardTagStore
	cfg       ExtractionConfig
	logger    *slog.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

func NewExtractionOrchestrator(
	cards ports.CardRepository,
	taxonomy ports.TagTaxonomy,
	generator ports.TagGenerator,
	store ports.CardTagStore,
	cfg ExtractionConfig,
	logger *slog.Logger,
) *ExtractionOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionOrchestrator{
		cards:     cards,
		taxonomy:  taxonomy,
		generator: generator,
		store:     store,
		cfg:       cfg.normalize(),
		logger:    logger,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

func (o *ExtractionOrchestrator) ExtractCard(ctx context.Context, cardID string) ([]domain.CardTag, error) {
	card, err := o.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}

	tags, err := o.taxonomy.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	byName := make(map[string]domain.Tag, len(tags))
	for _, t := range tags {
		byName[t.Name] = t
	}

	extracted, err := o.callWithRateLimitRetry(ctx, card, tags)
	if err != nil {
		return nil, err
	}

	for _, t := range extracted {
		if _, ok := byName[t.Name]; !ok {
			return nil, domain.WrapError(domain.ErrValidation, "validate extracted tags",
				fmt.Errorf("tag %q not in taxonomy", t.Name))
		}
	}

	extracted = domain.InheritParentTags(extracted, byName, o.cfg.InheritDiscount)

	rows := make([]domain.CardTag, 0, len(extracted))
	createdAt := o.now().UTC()
	for _, t := range extracted {
		rows = append(rows, domain.CardTag{
			CardID:     card.ID,
			TagName:    t.Name,
			Confidence: t.Confidence,
			Source:     domain.TagSourceModel,
			Model:      o.generator.Model(),
			CreatedAt:  createdAt,
		})
	}

	if err := o.store.ReplaceForCard(ctx, card.ID, rows); err != nil {
		return nil, fmt.Errorf("persist card tags: %w", err)
	}

	o.logger.Info("extraction_complete",
		"card_id", card.ID,
		"state", stateSuccess,
		"tags", len(rows),
	)
	return rows, nil
}

func (o *ExtractionOrchestrator) callWithRateLimitRetry(
	ctx context.Context,
	card *domain.Card,
	taxonomy []domain.Tag,
) ([]domain.ExtractedTag, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		o.logger.Debug("extraction_attempt", "card_id", card.ID, "state", stateCalling, "attempt", attempt)
		extracted, err := o.generator.GenerateTags(ctx, card, taxonomy)
		if err == nil {
			return extracted, nil
		}

		var rl *domain.RateLimitError
		if !errors.As(err, &rl) {
			o.logger.Warn("extraction_failed", "card_id", card.ID, "state", stateFailed, "error", err)
			return nil, fmt.Errorf("generate tags: %w", err)
		}

		if attempt >= o.cfg.MaxRetries {
			return nil, domain.WrapError(domain.ErrRateLimitExceeded, "generate tags", err)
		}

		wait, ok := rl.WaitHint(o.now())
		if !ok {
			wait = o.cfg.DefaultWait
		}
		wait += o.cfg.WaitBuffer

		o.logger.Warn("extraction_rate_limited",
			"card_id", card.ID,
			"state", stateWaiting,
			"attempt", attempt,
			"wait_s", wait.Seconds(),
		)
		if err := o.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ ports.TagExtractor = (*ExtractionOrchestrator)(nil)
