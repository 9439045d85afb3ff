package container

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-worldwise/config"
)

func TestWireServesCitiesFromTheDatabase(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var cfg config.Config
	cfg.Cache.Expiration = time.Minute

	c := Wire(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), mock)
	require.NotNil(t, c.CityHandler)

	id := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM cities`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "city_name", "country", "emoji", "visited_at", "notes", "latitude", "longitude"}).
			AddRow(id, "Lisbon", "Portugal", "🇵🇹", time.Now().UTC(), "", 38.72, -9.14))

	cities, err := c.CityService.GetAllCities(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, id, cities[0].ID)

	// Cached: no second query is expected
	_, err = c.CityService.GetAllCities(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	c.Close()
}
