// Package weather implements the application flows: fetching a city's
// current conditions, picking the best stored record, evaluating alerts,
// comparing cities and importing bulk data.
package weather

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lox/citywx/internal/alerts"
	"github.com/lox/citywx/internal/cityname"
	"github.com/lox/citywx/internal/ingest"
	"github.com/lox/citywx/internal/metrics"
	"github.com/lox/citywx/internal/models"
	"github.com/lox/citywx/internal/provider"
	"github.com/lox/citywx/internal/rank"
	"github.com/lox/citywx/internal/store"
)

var (
	// ErrNoData means nothing usable is known for the requested city.
	ErrNoData = errors.New("no weather data")
	// ErrProvider wraps failures of the weather provider, including payloads
	// that could not be normalized.
	ErrProvider = errors.New("weather provider failure")
)

// Fetcher returns the raw current-weather payload for a city.
type Fetcher interface {
	Fetch(ctx context.Context, city string) ([]byte, error)
}

type Service struct {
	store      *store.Store
	fetcher    Fetcher
	registry   *ingest.Registry
	fahrenheit bool
	log        *zap.Logger
	newRunID   func() string
}

// NewService wires the service. fetcher may be nil when only stored data is
// used.
func NewService(st *store.Store, fetcher Fetcher, fahrenheit bool, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:      st,
		fetcher:    fetcher,
		registry:   ingest.DefaultRegistry(),
		fahrenheit: fahrenheit,
		log:        log,
		newRunID:   uuid.NewString,
	}
}

// Fahrenheit reports which alert table the service applies.
func (s *Service) Fahrenheit() bool { return s.fahrenheit }

// Registry exposes the source registry used for imports.
func (s *Service) Registry() *ingest.Registry { return s.registry }

// Conditions is the best known record for a city and its alerts.
type Conditions struct {
	City   string
	Record models.Record
	Score  int
	Alerts alerts.Result
}

// FetchAndStore looks up city with the provider, stores the normalized
// record, and returns the re-ranked conditions for the city.
func (s *Service) FetchAndStore(ctx context.Context, city string) (Conditions, error) {
	city, err := cityname.Canonicalize(city)
	if err != nil {
		return Conditions{}, err
	}
	if s.fetcher == nil {
		return Conditions{}, fmt.Errorf("%w: fetch %s: %w", ErrProvider, city, provider.ErrNoAPIKey)
	}

	run, err := s.store.StartIngestRun(s.newRunID(), ingest.SourceOpenWeather, city)
	if err != nil {
		return Conditions{}, fmt.Errorf("start ingest run: %w", err)
	}
	log := s.log.With(zap.String("run", run.RunUUID), zap.String("city", city))
	log.Info("fetch: requesting current weather")

	rec, err := s.fetchRecord(ctx, run, city)
	if err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		if cerr := s.store.CompleteIngestRun(run); cerr != nil {
			log.Error("fetch: complete ingest run", zap.Error(cerr))
		}
		log.Warn("fetch: failed", zap.Error(err))
		return Conditions{}, err
	}

	run.Success = true
	if err := s.store.CompleteIngestRun(run); err != nil {
		log.Error("fetch: complete ingest run", zap.Error(err))
	}
	log.Info("fetch: stored record", zap.Int64("id", rec.ID), zap.String("observed_at", rec.ObservedAtText()))

	return s.conditionsFor(rec.LocationName)
}

func (s *Service) fetchRecord(ctx context.Context, run *models.IngestRun, city string) (models.Record, error) {
	body, err := s.fetcher.Fetch(ctx, city)
	if status := provider.StatusCode(err); status != 0 {
		run.HTTPStatus = sql.NullInt64{Int64: int64(status), Valid: true}
	}
	if errors.Is(err, provider.ErrCityNotFound) {
		return models.Record{}, fmt.Errorf("%w: %w", ErrNoData, err)
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: fetch %s: %w", ErrProvider, city, err)
	}
	run.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}

	if _, err := s.store.StoreRawPayload(run.ID, ingest.SourceOpenWeather, city, body); err != nil {
		s.log.Warn("fetch: archive payload", zap.String("city", city), zap.Error(err))
	}

	run.RecordsParsed = sql.NullInt64{Int64: 1, Valid: true}
	rec, err := s.registry.Normalize(ingest.SourceOpenWeather, ingest.JSONRow(body))
	if err != nil {
		run.ParseErrors = sql.NullInt64{Int64: 1, Valid: true}
		run.RecordsStored = sql.NullInt64{Int64: 0, Valid: true}
		metrics.RecordsRejected.WithLabelValues(ingest.SourceOpenWeather, rejectReason(err)).Inc()
		return models.Record{}, fmt.Errorf("%w: normalize %s payload: %w", ErrProvider, city, err)
	}
	rec.LocationName = storedName(rec.LocationName, city)

	rec, err = s.store.AppendRecord(rec)
	if err != nil {
		return models.Record{}, fmt.Errorf("store record: %w", err)
	}
	run.ParseErrors = sql.NullInt64{Int64: 0, Valid: true}
	run.RecordsStored = sql.NullInt64{Int64: 1, Valid: true}
	metrics.RecordsIngested.WithLabelValues(ingest.SourceOpenWeather).Inc()
	return rec, nil
}

// Current returns the best stored record for city and its alerts.
func (s *Service) Current(city string) (Conditions, error) {
	city, err := cityname.Canonicalize(city)
	if err != nil {
		return Conditions{}, err
	}
	return s.conditionsFor(city)
}

// Latest returns the most recently observed record for city, regardless of
// completeness.
func (s *Service) Latest(city string) (models.Record, error) {
	city, err := cityname.Canonicalize(city)
	if err != nil {
		return models.Record{}, err
	}
	rec, err := s.store.LatestRecord(city)
	if errors.Is(err, store.ErrNotFound) {
		return models.Record{}, fmt.Errorf("%w for %s", ErrNoData, city)
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("latest record for %s: %w", city, err)
	}
	return rec, nil
}

// LatestAlerts evaluates alerts for the most recently observed city.
func (s *Service) LatestAlerts() (Conditions, error) {
	name, err := s.store.MostRecentLocation()
	if errors.Is(err, store.ErrNotFound) {
		return Conditions{}, ErrNoData
	}
	if err != nil {
		return Conditions{}, fmt.Errorf("most recent location: %w", err)
	}
	return s.conditionsFor(name)
}

// Ranked returns every stored record for city with its score, best first.
func (s *Service) Ranked(city string) ([]rank.Scored, error) {
	city, err := cityname.Canonicalize(city)
	if err != nil {
		return nil, err
	}
	records, err := s.store.RecordsByLocation(city)
	if err != nil {
		return nil, fmt.Errorf("records for %s: %w", city, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, city)
	}
	return rank.Rank(records), nil
}

func (s *Service) conditionsFor(name string) (Conditions, error) {
	records, err := s.store.RecordsByLocation(name)
	if err != nil {
		return Conditions{}, fmt.Errorf("records for %s: %w", name, err)
	}
	best, err := rank.Best(records)
	if errors.Is(err, rank.ErrNoCandidates) {
		return Conditions{}, fmt.Errorf("%w for %s", ErrNoData, name)
	}
	if err != nil {
		return Conditions{}, err
	}

	res := alerts.Evaluate(best, s.fahrenheit)
	metrics.AlertsEvaluated.WithLabelValues(string(res.Status())).Inc()
	return Conditions{
		City:   best.LocationName,
		Record: best,
		Score:  rank.Score(best),
		Alerts: res,
	}, nil
}

// storedName picks the name a fetched record is stored under: the provider's
// name when it can be looked up again, otherwise the city that was queried.
func storedName(reported, queried string) string {
	name := cityname.Normalize(reported)
	if cityname.Validate(name) != nil {
		return queried
	}
	return name
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ingest.ErrUnparseableTimestamp):
		return "timestamp"
	case errors.Is(err, ingest.ErrMissingLocation), errors.Is(err, cityname.ErrInvalid):
		return "location"
	default:
		return "malformed"
	}
}
