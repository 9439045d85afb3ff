package city

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-worldwise/app/observability/metrics"
	"github.com/FACorreiaa/go-worldwise/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for city operations.
type Service interface {
	GetAllCities(ctx context.Context) ([]types.City, error)
	GetCity(ctx context.Context, id uuid.UUID) (*types.City, error)
	CreateCity(ctx context.Context, city types.NewCity) (*types.City, error)
	DeleteCity(ctx context.Context, id uuid.UUID) error
}

const allCitiesKey = "cities:all"

func cityKey(id uuid.UUID) string {
	return "city:" + id.String()
}

// ServiceImpl caches reads in memory and drops the cached entries on every write.
// A read only fills the cache if no write finished while it was querying.
type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cache  *cache.Cache

	mu      sync.Mutex
	version uint64
}

// NewCityService creates a city service. Cached reads expire after expiration;
// a zero expiration falls back to five minutes.
func NewCityService(repo Repository, logger *slog.Logger, expiration, cleanupInterval time.Duration) *ServiceImpl {
	if expiration <= 0 {
		expiration = 5 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 2 * expiration
	}
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(expiration, cleanupInterval),
	}
}

func (s *ServiceImpl) GetAllCities(ctx context.Context) ([]types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "GetAllCities")
	defer span.End()

	l := s.logger.With(slog.String("method", "GetAllCities"))

	if cached, found := s.cache.Get(allCitiesKey); found {
		s.hit(ctx, "GetAllCities")
		l.DebugContext(ctx, "Serving cities from cache")
		span.SetStatus(codes.Ok, "Cities served from cache")
		return cloneCities(cached.([]types.City)), nil
	}

	seen := s.currentVersion()
	cities, err := s.repo.ListCities(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch cities")
		return nil, fmt.Errorf("error fetching cities: %w", err)
	}

	if !s.fill(seen, allCitiesKey, cloneCities(cities)) {
		l.DebugContext(ctx, "Skipped caching cities, a write finished during the read")
	}
	l.InfoContext(ctx, "Cities fetched successfully", slog.Int("count", len(cities)))
	span.SetStatus(codes.Ok, "Cities fetched successfully")
	return cities, nil
}

func (s *ServiceImpl) GetCity(ctx context.Context, id uuid.UUID) (*types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "GetCity", trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetCity"), slog.String("cityID", id.String()))

	if cached, found := s.cache.Get(cityKey(id)); found {
		s.hit(ctx, "GetCity")
		span.SetStatus(codes.Ok, "City served from cache")
		c := cached.(types.City)
		return &c, nil
	}

	seen := s.currentVersion()
	c, err := s.repo.GetCity(ctx, id)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch city")
		return nil, fmt.Errorf("error fetching city: %w", err)
	}

	s.fill(seen, cityKey(id), *c)
	l.DebugContext(ctx, "City fetched successfully")
	span.SetStatus(codes.Ok, "City fetched successfully")
	return c, nil
}

func (s *ServiceImpl) CreateCity(ctx context.Context, city types.NewCity) (*types.City, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "CreateCity", trace.WithAttributes(
		attribute.String("city.name", city.CityName),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateCity"), slog.String("cityName", city.CityName))

	if err := city.Validate(); err != nil {
		l.WarnContext(ctx, "Rejected invalid city", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid city")
		return nil, err
	}

	created, err := s.repo.SaveCity(ctx, city)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create city")
		return nil, fmt.Errorf("error creating city: %w", err)
	}

	s.invalidate(allCitiesKey)
	s.cache.Set(cityKey(created.ID), *created, cache.DefaultExpiration)

	l.InfoContext(ctx, "City created successfully", slog.String("cityID", created.ID.String()))
	span.SetStatus(codes.Ok, "City created successfully")
	return created, nil
}

func (s *ServiceImpl) DeleteCity(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CityService").Start(ctx, "DeleteCity", trace.WithAttributes(
		attribute.String("city.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteCity"), slog.String("cityID", id.String()))

	// Drop cached copies even when the delete fails; the next read goes to the database.
	s.invalidate(allCitiesKey, cityKey(id))
	err := s.repo.DeleteCity(ctx, id)
	s.invalidate(allCitiesKey, cityKey(id))

	if err != nil {
		l.WarnContext(ctx, "Failed to delete city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete city")
		return fmt.Errorf("error deleting city: %w", err)
	}

	l.InfoContext(ctx, "City deleted successfully")
	span.SetStatus(codes.Ok, "City deleted successfully")
	return nil
}

func (s *ServiceImpl) currentVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// fill caches v under key unless a write bumped the version since seen.
func (s *ServiceImpl) fill(seen uint64, key string, v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != seen {
		return false
	}
	s.cache.Set(key, v, cache.DefaultExpiration)
	return true
}

// invalidate drops keys and makes in-flight reads skip filling the cache.
func (s *ServiceImpl) invalidate(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	for _, k := range keys {
		s.cache.Delete(k)
	}
}

func (s *ServiceImpl) hit(ctx context.Context, op string) {
	metrics.Get().CacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

func cloneCities(cities []types.City) []types.City {
	out := make([]types.City, len(cities))
	copy(out, cities)
	return out
}
