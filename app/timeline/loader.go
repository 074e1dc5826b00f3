package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/milestone-timeline/app/sheet"
)

const (
	FailureFetch         = "fetch"
	FailureDecode        = "decode"
	FailureNormalization = "normalization"
	FailureUnknown       = "unknown"
)

// LoadResult describes one finished load attempt.
type LoadResult struct {
	AttemptID   string
	Duration    time.Duration
	Milestones  int
	Fallback    bool
	FailureKind string
	Err         error
}

type Loader struct {
	fetcher       FetcherInterface
	decoder       *sheet.Decoder
	normalizer    *Normalizer
	fallback      *FallbackPolicy
	milestonesURL string
	configURL     string
	observer      Observer
	now           func() time.Time
	group         singleflight.Group
}

func NewLoader(fetcher FetcherInterface, fallback *FallbackPolicy, milestonesURL, configURL string) *Loader {
	return &Loader{
		fetcher:       fetcher,
		decoder:       sheet.NewDecoder(),
		normalizer:    NewNormalizer(),
		fallback:      fallback,
		milestonesURL: milestonesURL,
		configURL:     configURL,
		now:           time.Now,
	}
}

func (l *Loader) SetObserver(observer Observer) {
	l.observer = observer
}

type loadOutcome struct {
	dataset *Dataset
	err     error
}

// Load runs the pipeline once. On failure it returns the fallback dataset
// together with the error; the dataset is never nil. Callers arriving while a
// run is in flight share its outcome instead of starting another.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	v, _, _ := l.group.Do("timeline", func() (any, error) {
		return l.attempt(context.WithoutCancel(ctx)), nil
	})
	outcome := v.(loadOutcome)
	return outcome.dataset, outcome.err
}

func (l *Loader) attempt(ctx context.Context) loadOutcome {
	attemptID := uuid.NewString()
	started := time.Now()

	dataset, err := l.run(ctx)

	result := LoadResult{
		AttemptID: attemptID,
		Duration:  time.Since(started),
		Err:       err,
	}

	if err != nil {
		var message string
		dataset, message = l.fallback.Apply(err)
		result.Fallback = true
		result.FailureKind = FailureKind(err)
		slog.Error("Timeline load failed, using fallback",
			"attempt", attemptID,
			"kind", result.FailureKind,
			"duration", result.Duration,
			"error", message)
	} else {
		slog.Info("Timeline loaded",
			"attempt", attemptID,
			"duration", result.Duration,
			"milestones", len(dataset.Milestones),
			"last_updated", dataset.LastUpdated)
	}
	result.Milestones = len(dataset.Milestones)

	if l.observer != nil {
		l.observer.ObserveLoad(result)
	}

	return loadOutcome{dataset: dataset, err: err}
}

func (l *Loader) run(ctx context.Context) (*Dataset, error) {
	payloads, err := l.fetcher.Run(ctx, l.milestonesURL, l.configURL)
	if err != nil {
		return nil, err
	}

	milestonesTable, err := l.decoder.Run(payloads.Milestones)
	if err != nil {
		return nil, fmt.Errorf("failed to decode milestones feed: %w", err)
	}

	configTable, err := l.decoder.Run(payloads.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config feed: %w", err)
	}

	milestones, err := l.normalizer.Run(milestonesTable)
	if err != nil {
		return nil, err
	}

	settings, err := NormalizeSettings(configTable)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		LastUpdated: settings.LastUpdated(l.now()),
		Milestones:  milestones,
	}, nil
}

// FailureKind classifies a load error for logs and metrics.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, sheet.ErrFetch):
		return FailureFetch
	case errors.Is(err, sheet.ErrDecode):
		return FailureDecode
	case errors.Is(err, ErrNormalization):
		return FailureNormalization
	default:
		return FailureUnknown
	}
}
