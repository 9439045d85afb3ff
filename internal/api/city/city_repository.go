package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-worldwise/app/observability/metrics"
	"github.com/FACorreiaa/go-worldwise/internal/types"
)

var _ Repository = (*PostgresCityRepository)(nil)

// Repository defines the contract for city persistence.
type Repository interface {
	// ListCities returns every city in insertion order.
	ListCities(ctx context.Context) ([]types.City, error)
	// GetCity returns types.ErrNotFound when no city has the id.
	GetCity(ctx context.Context, id uuid.UUID) (*types.City, error)
	// SaveCity stores a city and returns it with its assigned id.
	SaveCity(ctx context.Context, city types.NewCity) (*types.City, error)
	// DeleteCity returns types.ErrNotFound when no city has the id.
	DeleteCity(ctx context.Context, id uuid.UUID) error
}

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	listCitiesQuery = `
        SELECT id, city_name, country, emoji, visited_at, notes, latitude, longitude
        FROM cities
        ORDER BY created_at, id`

	getCityQuery = `
        SELECT id, city_name, country, emoji, visited_at, notes, latitude, longitude
        FROM cities
        WHERE id = $1`

	saveCityQuery = `
        INSERT INTO cities (
            city_name, country, emoji, visited_at, notes, latitude, longitude
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`

	deleteCityQuery = `DELETE FROM cities WHERE id = $1`
)

type PostgresCityRepository struct {
	logger *slog.Logger
	pgpool DB
}

func NewCityRepository(pgpool DB, logger *slog.Logger) *PostgresCityRepository {
	return &PostgresCityRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresCityRepository) ListCities(ctx context.Context) ([]types.City, error) {
	ctx, span := otel.Tracer("CityRepository").Start(ctx, "ListCities", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
	))
	defer span.End()
	defer r.observe(ctx, "ListCities", time.Now())

	l := r.logger.With(slog.String("method", "ListCities"))

	rows, err := r.pgpool.Query(ctx, listCitiesQuery)
	if err != nil {
		r.fail(ctx, span, "ListCities", err)
		l.ErrorContext(ctx, "Failed to query cities", slog.Any("error", err))
		return nil, fmt.Errorf("database error fetching cities: %w", err)
	}
	defer rows.Close()

	cities := make([]types.City, 0)
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			r.fail(ctx, span, "ListCities", err)
			l.ErrorContext(ctx, "Failed to scan city row", slog.Any("error", err))
			return nil, fmt.Errorf("database error scanning city: %w", err)
		}
		cities = append(cities, c)
	}

	if err = rows.Err(); err != nil {
		r.fail(ctx, span, "ListCities", err)
		l.ErrorContext(ctx, "Error iterating city rows", slog.Any("error", err))
		return nil, fmt.Errorf("database error reading cities: %w", err)
	}

	l.DebugContext(ctx, "Fetched cities", slog.Int("count", len(cities)))
	span.SetStatus(codes.Ok, "Cities fetched")
	return cities, nil
}

func (r *PostgresCityRepository) GetCity(ctx context.Context, id uuid.UUID) (*types.City, error) {
	ctx, span := otel.Tracer("CityRepository").Start(ctx, "GetCity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
		attribute.String("city.id", id.String()),
	))
	defer span.End()
	defer r.observe(ctx, "GetCity", time.Now())

	c, err := scanCity(r.pgpool.QueryRow(ctx, getCityQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "City not found")
			return nil, fmt.Errorf("city %s: %w", id, types.ErrNotFound)
		}
		r.fail(ctx, span, "GetCity", err)
		r.logger.ErrorContext(ctx, "Failed to fetch city", slog.String("city_id", id.String()), slog.Any("error", err))
		return nil, fmt.Errorf("database error fetching city: %w", err)
	}

	span.SetStatus(codes.Ok, "City fetched")
	return &c, nil
}

func (r *PostgresCityRepository) SaveCity(ctx context.Context, city types.NewCity) (*types.City, error) {
	ctx, span := otel.Tracer("CityRepository").Start(ctx, "SaveCity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
		attribute.String("city.name", city.CityName),
	))
	defer span.End()
	defer r.observe(ctx, "SaveCity", time.Now())

	var id uuid.UUID
	err := r.pgpool.QueryRow(ctx, saveCityQuery,
		city.CityName,
		city.Country,
		city.Emoji,
		city.Date,
		city.Notes,
		city.Position.Lat,
		city.Position.Lng,
	).Scan(&id)
	if err != nil {
		r.fail(ctx, span, "SaveCity", err)
		r.logger.ErrorContext(ctx, "Failed to insert city", slog.String("city_name", city.CityName), slog.Any("error", err))
		return nil, fmt.Errorf("failed to insert city: %w", err)
	}

	span.SetAttributes(attribute.String("city.id", id.String()))
	span.SetStatus(codes.Ok, "City saved")
	return &types.City{
		ID:       id,
		CityName: city.CityName,
		Country:  city.Country,
		Emoji:    city.Emoji,
		Date:     city.Date,
		Notes:    city.Notes,
		Position: city.Position,
	}, nil
}

func (r *PostgresCityRepository) DeleteCity(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("CityRepository").Start(ctx, "DeleteCity", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
		attribute.String("city.id", id.String()),
	))
	defer span.End()
	defer r.observe(ctx, "DeleteCity", time.Now())

	tag, err := r.pgpool.Exec(ctx, deleteCityQuery, id)
	if err != nil {
		r.fail(ctx, span, "DeleteCity", err)
		r.logger.ErrorContext(ctx, "Failed to delete city", slog.String("city_id", id.String()), slog.Any("error", err))
		return fmt.Errorf("failed to delete city: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "City not found")
		return fmt.Errorf("city %s: %w", id, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "City deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCity(row rowScanner) (types.City, error) {
	var c types.City
	err := row.Scan(
		&c.ID, &c.CityName, &c.Country, &c.Emoji, &c.Date, &c.Notes, &c.Position.Lat, &c.Position.Lng,
	)
	return c, err
}

func (r *PostgresCityRepository) observe(ctx context.Context, op string, start time.Time) {
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("db.operation", op)))
}

func (r *PostgresCityRepository) fail(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "DB operation failed")
	metrics.Get().DbQueryErrorsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("db.operation", op)))
}
