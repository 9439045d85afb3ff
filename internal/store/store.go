// Package store keeps the in-memory list of visited cities in sync with the
// city API and tells subscribers whenever that state changes.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-worldwise/app/observability/metrics"
	"github.com/FACorreiaa/go-worldwise/internal/types"
)

// Repository is the remote source of truth for cities.
type Repository interface {
	ListCities(ctx context.Context) ([]types.City, error)
	GetCity(ctx context.Context, id uuid.UUID) (types.City, error)
	CreateCity(ctx context.Context, city types.NewCity) (types.City, error)
	DeleteCity(ctx context.Context, id uuid.UUID) error
}

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeCached  = "cached"
)

type subscriber struct {
	id uint64
	fn Listener
}

// Store holds the city state. All methods are safe for concurrent use.
//
// Concurrent LoadAll calls share a single request, so two list responses
// never race. GetCity calls for the same id share a request too; calls for
// different ids carry a generation, and a response only applies if no
// newer GetCity was issued after it.
//
// Events are numbered in the order their state was produced. Listeners
// run outside the lock, so two operations settling together may deliver
// events out of that order; use Event.Seq or Snapshot for the latest state.
type Store struct {
	repo   Repository
	logger *slog.Logger
	group  singleflight.Group

	mu          sync.Mutex
	state       State
	inflight    int
	generations map[Operation]uint64
	seq         uint64
	subscribers []subscriber
	nextSubID   uint64
}

func New(repo Repository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:        repo,
		logger:      logger,
		generations: make(map[Operation]uint64),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Countries returns the distinct countries of the loaded cities.
func (s *Store) Countries() []types.Country {
	return types.CountriesOf(s.Snapshot().Cities)
}

// Subscribe registers fn for every future event. Calling the returned
// function removes it; calling it again is a no-op.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// LoadAll replaces the city list with the repository's.
func (s *Store) LoadAll(ctx context.Context) error {
	ctx, span := otel.Tracer("CityStore").Start(ctx, string(OpLoadAll))
	defer span.End()

	l := s.logger.With(slog.String("method", string(OpLoadAll)))
	start := time.Now()
	s.begin(OpLoadAll)

	v, err, shared := s.group.Do("cities", func() (any, error) {
		cities, err := s.repo.ListCities(ctx)
		if err != nil {
			s.apply(OpLoadAll, 0, action{kind: actionRejected, err: err})
			return result{}, err
		}
		s.apply(OpLoadAll, 0, action{kind: actionCitiesLoaded, cities: cities})
		return result{cities: cities}, nil
	})
	res, _ := v.(result)
	span.SetAttributes(attribute.Bool("singleflight.shared", shared))

	s.end(ctx, OpLoadAll, start, err, false)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load cities")
		return fmt.Errorf("error loading cities: %w", err)
	}

	l.DebugContext(ctx, "Cities loaded", slog.Int("count", len(res.cities)))
	span.SetAttributes(attribute.Int("cities.count", len(res.cities)))
	span.SetStatus(codes.Ok, "Cities loaded")
	return nil
}

// GetCity selects the city with the given id as the current city. When it
// already is the current city it is returned without a request.
func (s *Store) GetCity(ctx context.Context, id uuid.UUID) (types.City, error) {
	ctx, span := otel.Tracer("CityStore").Start(ctx, string(OpGetCity), trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", string(OpGetCity)), slog.String("id", id.String()))

	s.mu.Lock()
	current := s.state.CurrentCity
	s.mu.Unlock()
	if id != uuid.Nil && current.ID == id {
		s.record(ctx, OpGetCity, outcomeCached, time.Now())
		l.DebugContext(ctx, "City already selected")
		span.SetStatus(codes.Ok, "City already selected")
		return current, nil
	}

	start := time.Now()
	s.begin(OpGetCity)

	v, err, shared := s.group.Do("city:"+id.String(), func() (any, error) {
		gen := s.issue(OpGetCity)
		city, err := s.repo.GetCity(ctx, id)
		if err != nil {
			return result{stale: s.apply(OpGetCity, gen, action{kind: actionRejected, err: err})}, err
		}
		return result{
			city:  city,
			stale: s.apply(OpGetCity, gen, action{kind: actionCityLoaded, city: city}),
		}, nil
	})
	res, _ := v.(result)
	span.SetAttributes(attribute.Bool("singleflight.shared", shared))

	s.end(ctx, OpGetCity, start, err, res.stale)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load city")
		return types.City{}, fmt.Errorf("error loading city %s: %w", id, err)
	}

	l.DebugContext(ctx, "City loaded", slog.Bool("stale", res.stale))
	span.SetStatus(codes.Ok, "City loaded")
	return res.city, nil
}

// CreateCity stores newCity remotely and appends the stored record.
func (s *Store) CreateCity(ctx context.Context, newCity types.NewCity) (types.City, error) {
	ctx, span := otel.Tracer("CityStore").Start(ctx, string(OpCreateCity), trace.WithAttributes(
		attribute.String("city.name", newCity.CityName),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", string(OpCreateCity)))
	start := time.Now()
	s.begin(OpCreateCity)

	city, err := s.repo.CreateCity(ctx, newCity)
	if err != nil {
		s.apply(OpCreateCity, 0, action{kind: actionRejected, err: err})
		s.end(ctx, OpCreateCity, start, err, false)
		l.ErrorContext(ctx, "Failed to create city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create city")
		return types.City{}, fmt.Errorf("error creating city: %w", err)
	}

	s.apply(OpCreateCity, 0, action{kind: actionCityCreated, city: city})
	s.end(ctx, OpCreateCity, start, nil, false)

	l.InfoContext(ctx, "City created", slog.String("id", city.ID.String()), slog.String("name", city.CityName))
	span.SetAttributes(attribute.String("city.id", city.ID.String()))
	span.SetStatus(codes.Ok, "City created")
	return city, nil
}

// DeleteCity deletes the city remotely and drops it from the list. The
// current city is left as it is, even when it is the one deleted.
func (s *Store) DeleteCity(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CityStore").Start(ctx, string(OpDeleteCity), trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", string(OpDeleteCity)), slog.String("id", id.String()))
	start := time.Now()
	s.begin(OpDeleteCity)

	if err := s.repo.DeleteCity(ctx, id); err != nil {
		s.apply(OpDeleteCity, 0, action{kind: actionRejected, err: err})
		s.end(ctx, OpDeleteCity, start, err, false)
		l.ErrorContext(ctx, "Failed to delete city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete city")
		return fmt.Errorf("error deleting city %s: %w", id, err)
	}

	s.apply(OpDeleteCity, 0, action{kind: actionCityDeleted, id: id})
	s.end(ctx, OpDeleteCity, start, nil, false)

	l.InfoContext(ctx, "City deleted")
	span.SetStatus(codes.Ok, "City deleted")
	return nil
}

type result struct {
	cities []types.City
	city   types.City
	stale  bool
}

// begin marks one more request outstanding and publishes the loading state.
func (s *Store) begin(op Operation) {
	s.mu.Lock()
	s.inflight++
	s.state = reduce(s.state, action{kind: actionLoading})
	s.seq++
	ev := Event{Seq: s.seq, Op: op, Phase: PhaseStarted, State: s.state.clone()}
	subs := s.listeners()
	s.mu.Unlock()

	publish(subs, ev)
}

// issue hands out the next generation for op.
func (s *Store) issue(op Operation) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[op]++
	return s.generations[op]
}

// apply reduces a into the state unless gen was superseded. A zero gen is
// never stale. It reports whether the action was discarded.
func (s *Store) apply(op Operation, gen uint64, a action) (stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != 0 && gen != s.generations[op] {
		s.logger.Debug("Discarding superseded response",
			slog.String("method", string(op)),
			slog.String("action", a.kind.String()),
			slog.Uint64("generation", gen),
			slog.Uint64("latest", s.generations[op]))
		metrics.Get().StoreStaleResponsesTotal.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("operation", string(op))))
		return true
	}
	s.state = reduce(s.state, a)
	return false
}

// end marks a request resolved and publishes the settled state.
func (s *Store) end(ctx context.Context, op Operation, start time.Time, err error, stale bool) {
	s.mu.Lock()
	s.inflight--
	s.state.IsLoading = s.inflight > 0
	s.seq++
	ev := Event{Seq: s.seq, Op: op, Phase: PhaseSettled, State: s.state.clone(), Err: err, Stale: stale}
	subs := s.listeners()
	s.mu.Unlock()

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	s.record(ctx, op, outcome, start)
	publish(subs, ev)
}

func (s *Store) record(ctx context.Context, op Operation, outcome string, start time.Time) {
	m := metrics.Get()
	m.StoreOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.String("outcome", outcome),
	))
	m.StoreOperationDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("operation", string(op))))
}

// listeners must be called with s.mu held.
func (s *Store) listeners() []Listener {
	subs := make([]Listener, len(s.subscribers))
	for i, sub := range s.subscribers {
		subs[i] = sub.fn
	}
	return subs
}

func publish(subs []Listener, ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
