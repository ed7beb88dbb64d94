package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fortuna/halftime/internal/baseline"
	"github.com/fortuna/halftime/internal/ensemble"
	"github.com/fortuna/halftime/internal/features"
	"github.com/fortuna/halftime/internal/ingest/espn"
	"github.com/fortuna/halftime/internal/live"
	"github.com/fortuna/halftime/internal/metrics"
	"go.uber.org/zap"
)

// UnavailablePlayer is returned in place of a name when the player is not in
// any live box score.
const UnavailablePlayer = "Player Unavailable"

// Feed fetches the raw box scores of the day's started games.
type Feed interface {
	FetchLiveGames(ctx context.Context, date time.Time) ([]espn.RawGame, error)
}

// Scorer turns a merged vector into a prediction.
type Scorer interface {
	Explain(vec features.Vector, cats baseline.Categories) (ensemble.Explanation, error)
}

// SnapshotPublisher receives the team aggregates of every fetch.
type SnapshotPublisher interface {
	PublishLiveSnapshot(ctx context.Context, aggs []live.TeamAggregate) error
}

// healthChecker is implemented by baseline sources backed by a database.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Broadcaster fans serialized predictions out to subscribers.
type Broadcaster interface {
	Broadcast(data []byte)
}

// PredictionResult is the answer to one prediction request. The unavailable
// sentinel carries only the player and zeroed numeric fields.
type PredictionResult struct {
	Player            string                `json:"player"`
	CurrentPTS        int                   `json:"current_pts"`
	CurrentMins       int                   `json:"current_mins"`
	PredictedFinalPTS int                   `json:"predicted_final_pts"`
	Date              string                `json:"date,omitempty"`
	Detail            *ensemble.Explanation `json:"detail,omitempty"`
}

// Available reports whether the result carries a real prediction.
func (r PredictionResult) Available() bool {
	return r.Player != UnavailablePlayer
}

// Options wires a PredictionService. Publisher and Broadcaster are optional.
type Options struct {
	Feed        Feed
	Baseline    baseline.Source
	Scorer      Scorer
	Variant     features.Variant
	Publisher   SnapshotPublisher
	Broadcaster Broadcaster
	Location    *time.Location
	Logger      *zap.SugaredLogger
}

// PredictionService runs the fetch, normalize, aggregate, merge and predict
// pipeline for one player per call. It holds no per-request state.
type PredictionService struct {
	feed        Feed
	baseline    baseline.Source
	scorer      Scorer
	variant     features.Variant
	publisher   SnapshotPublisher
	broadcaster Broadcaster
	location    *time.Location
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// NewPredictionService creates a new prediction service
func NewPredictionService(opts Options) *PredictionService {
	s := &PredictionService{
		feed:        opts.Feed,
		baseline:    opts.Baseline,
		scorer:      opts.Scorer,
		variant:     opts.Variant,
		publisher:   opts.Publisher,
		broadcaster: opts.Broadcaster,
		location:    opts.Location,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.variant == "" {
		s.variant = features.VariantEnsemble
	}
	return s
}

// Today returns the current date in the service's location.
func (s *PredictionService) Today() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

// Predict returns the projected final point total of player on date. A zero
// date means today. A player missing from the live feed yields the
// unavailable sentinel rather than an error.
func (s *PredictionService) Predict(ctx context.Context, player string, date time.Time) (*PredictionResult, error) {
	start := time.Now()
	defer func() { metrics.PredictionDuration.Observe(time.Since(start).Seconds()) }()

	date = s.resolveDate(date)
	result, err := s.predict(ctx, strings.TrimSpace(player), date)
	switch {
	case err != nil:
		metrics.Predictions.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Warnw("prediction failed", "player", player, "error", err)
		return nil, err
	case !result.Available():
		metrics.Predictions.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		s.logger.Infow("player not in live feed", "player", player, "date", date.Format(baseline.DateLayout))
	default:
		metrics.Predictions.WithLabelValues(metrics.OutcomePredicted).Inc()
		s.logger.Infow("prediction computed",
			"player", result.Player,
			"current_pts", result.CurrentPTS,
			"predicted_final_pts", result.PredictedFinalPTS,
		)
		s.broadcast(result)
	}
	return result, nil
}

func (s *PredictionService) predict(ctx context.Context, player string, date time.Time) (*PredictionResult, error) {
	day := date.Format(baseline.DateLayout)

	rows, err := s.liveRows(ctx, date)
	if err != nil {
		return nil, err
	}

	row, ok := live.FindPlayer(rows, player)
	if !ok {
		return &PredictionResult{Player: UnavailablePlayer}, nil
	}

	table, err := s.baseline.Load(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading baseline: %w", err)
	}
	base, err := table.Lookup(player)
	if err != nil {
		return nil, err
	}

	vec, err := features.Merge(base, rows, player, s.variant)
	if err != nil {
		return nil, fmt.Errorf("merging features: %w", err)
	}

	exp, err := s.scorer.Explain(vec, table.Categories)
	if err != nil {
		return nil, fmt.Errorf("scoring %s: %w", player, err)
	}

	pts, _ := row.Stat(live.StatPoints)
	mins, _ := row.Stat(live.StatMinutes)
	return &PredictionResult{
		Player:            player,
		CurrentPTS:        pts,
		CurrentMins:       mins,
		PredictedFinalPTS: exp.Prediction,
		Date:              day,
		Detail:            &exp,
	}, nil
}

// LivePlayers returns every live row of date's started games.
func (s *PredictionService) LivePlayers(ctx context.Context, date time.Time) ([]live.LiveRow, error) {
	return s.liveRows(ctx, s.resolveDate(date))
}

// LiveTeams returns the team aggregates of date's started games.
func (s *PredictionService) LiveTeams(ctx context.Context, date time.Time) ([]live.TeamAggregate, error) {
	rows, err := s.boxScores(ctx, s.resolveDate(date))
	if err != nil {
		return nil, err
	}
	return live.TeamAggregates(rows), nil
}

// BaselineRows counts the baseline rows available for date.
func (s *PredictionService) BaselineRows(ctx context.Context, date time.Time) (int, error) {
	table, err := s.baseline.Load(ctx, s.resolveDate(date))
	if err != nil {
		return 0, err
	}
	return table.Len(), nil
}

// CheckBaseline pings the baseline source when it has a connection to ping.
func (s *PredictionService) CheckBaseline(ctx context.Context) error {
	if hc, ok := s.baseline.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (s *PredictionService) liveRows(ctx context.Context, date time.Time) ([]live.LiveRow, error) {
	rows, err := s.boxScores(ctx, date)
	if err != nil {
		return nil, err
	}
	return live.Aggregate(rows), nil
}

func (s *PredictionService) boxScores(ctx context.Context, date time.Time) ([]live.PlayerBoxScoreRow, error) {
	games, err := s.feed.FetchLiveGames(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetching live games: %w", err)
	}

	rows, err := espn.Normalize(games)
	if err != nil {
		return nil, fmt.Errorf("normalizing box scores: %w", err)
	}
	s.publish(ctx, live.TeamAggregates(rows))
	return rows, nil
}

// publish is best-effort; a failed write never fails the request.
func (s *PredictionService) publish(ctx context.Context, aggs []live.TeamAggregate) {
	if s.publisher == nil || len(aggs) == 0 {
		return
	}
	if err := s.publisher.PublishLiveSnapshot(ctx, aggs); err != nil {
		metrics.SnapshotPublishFailures.Inc()
		s.logger.Warnw("failed to publish live snapshot", "error", err)
	}
}

func (s *PredictionService) broadcast(result *PredictionResult) {
	if s.broadcaster == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Errorw("failed to encode prediction", "error", err)
		return
	}
	s.broadcaster.Broadcast(data)
}

func (s *PredictionService) resolveDate(date time.Time) time.Time {
	if date.IsZero() {
		return s.Today()
	}
	return date
}
