package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-worldwise/internal/types"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand(rootOptions{BaseURL: "http://localhost:9000", Format: formatText})
	require.NotNil(t, cmd)
	assert.Equal(t, "cities", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand(rootOptions{Format: formatText})
	for _, name := range []string{"list", "countries", "get", "add", "delete"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand(rootOptions{BaseURL: "http://api.example", Timeout: 15 * time.Second, Format: formatText})

	baseURL := cmd.PersistentFlags().Lookup("base-url")
	require.NotNil(t, baseURL)
	assert.Equal(t, "http://api.example", baseURL.DefValue)

	timeout := cmd.PersistentFlags().Lookup("timeout")
	require.NotNil(t, timeout)
	assert.Equal(t, "15s", timeout.DefValue)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

func TestAddOptionsPayload(t *testing.T) {
	now := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)

	t.Run("Defaults the date to now", func(t *testing.T) {
		o := &addOptions{Name: "Lisbon", Country: "Portugal", Lat: 38.72, Lng: -9.14}
		got, err := o.payload(now)
		require.NoError(t, err)
		assert.Equal(t, now, got.Date)
		assert.Equal(t, types.Position{Lat: 38.72, Lng: -9.14}, got.Position)
	})

	t.Run("Parses a plain date", func(t *testing.T) {
		o := &addOptions{Name: "Lisbon", Country: "Portugal", Date: "2024-03-01"}
		got, err := o.payload(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.Date)
	})

	t.Run("Rejects a bad date", func(t *testing.T) {
		o := &addOptions{Name: "Lisbon", Country: "Portugal", Date: "yesterday"}
		_, err := o.payload(now)
		assert.Error(t, err)
	})

	t.Run("Rejects an out of range latitude", func(t *testing.T) {
		o := &addOptions{Name: "Lisbon", Country: "Portugal", Lat: 91}
		_, err := o.payload(now)
		assert.ErrorIs(t, err, types.ErrBadRequest)
	})
}

// fakeAPI serves a fixed city list and fails writes when failWrites is set.
func fakeAPI(t *testing.T, cities []types.City, failWrites bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cities", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(cities))
	})
	mux.HandleFunc("GET /cities/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range cities {
			if c.ID.String() == r.PathValue("id") {
				require.NoError(t, json.NewEncoder(w).Encode(c))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"city not found"}`))
	})
	mux.HandleFunc("POST /cities", func(w http.ResponseWriter, r *http.Request) {
		if failWrites {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"Failed to create city"}`))
			return
		}
		var nc types.NewCity
		require.NoError(t, json.NewDecoder(r.Body).Decode(&nc))
		created := types.City{
			ID: uuid.New(), CityName: nc.CityName, Country: nc.Country, Emoji: nc.Emoji,
			Date: nc.Date, Notes: nc.Notes, Position: nc.Position,
		}
		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(created))
	})
	mux.HandleFunc("DELETE /cities/{id}", func(w http.ResponseWriter, r *http.Request) {
		if failWrites {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"Failed to delete city"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, baseURL string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCommand(rootOptions{BaseURL: baseURL, Timeout: 5 * time.Second, Format: formatText})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func testCities() []types.City {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []types.City{
		{ID: uuid.New(), CityName: "Lisbon", Country: "Portugal", Emoji: "🇵🇹", Date: date, Position: types.Position{Lat: 38.72, Lng: -9.14}},
		{ID: uuid.New(), CityName: "Porto", Country: "Portugal", Emoji: "🇵🇹", Date: date, Position: types.Position{Lat: 41.15, Lng: -8.61}},
		{ID: uuid.New(), CityName: "Berlin", Country: "Germany", Emoji: "🇩🇪", Date: date, Notes: "Cold", Position: types.Position{Lat: 52.52, Lng: 13.40}},
	}
}

func TestListCommand(t *testing.T) {
	cities := testCities()
	srv := fakeAPI(t, cities, false)

	out, _, err := execute(t, srv.URL, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "CITY")
	assert.Contains(t, lines[1], "Lisbon")
	assert.Contains(t, lines[3], "Berlin")
	assert.Contains(t, lines[3], "Cold")
}

func TestListCommandJSON(t *testing.T) {
	cities := testCities()
	srv := fakeAPI(t, cities, false)

	out, _, err := execute(t, srv.URL, "list", "--format", "json")
	require.NoError(t, err)

	var got []types.City
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, cities, got)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "http://localhost:1", "list", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestCountriesCommand(t *testing.T) {
	srv := fakeAPI(t, testCities(), false)

	out, _, err := execute(t, srv.URL, "countries")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Portugal")
	assert.Contains(t, lines[1], "Germany")
}

func TestGetCommand(t *testing.T) {
	cities := testCities()
	srv := fakeAPI(t, cities, false)

	t.Run("Found", func(t *testing.T) {
		out, _, err := execute(t, srv.URL, "get", cities[2].ID.String())
		require.NoError(t, err)
		assert.Contains(t, out, "Berlin")
		assert.Contains(t, out, "Wednesday, May 1, 2024")
	})

	t.Run("Unknown id", func(t *testing.T) {
		_, _, err := execute(t, srv.URL, "get", uuid.NewString())
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("Malformed id", func(t *testing.T) {
		_, _, err := execute(t, srv.URL, "get", "not-a-uuid")
		assert.ErrorContains(t, err, "invalid city id")
	})
}

func TestAddCommand(t *testing.T) {
	t.Run("Appends the new city", func(t *testing.T) {
		srv := fakeAPI(t, testCities(), false)

		out, _, err := execute(t, srv.URL, "add", "--name", "Paris", "--country", "France", "--lat", "48.85", "--lng", "2.35", "--date", "2024-06-01")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 5)
		assert.Contains(t, lines[4], "Paris")
	})

	t.Run("Missing required flag", func(t *testing.T) {
		_, _, err := execute(t, "http://localhost:1", "add", "--name", "Paris")
		assert.Error(t, err)
	})

	t.Run("Failure raises an alert", func(t *testing.T) {
		srv := fakeAPI(t, testCities(), true)

		_, stderr, err := execute(t, srv.URL, "add", "--name", "Paris", "--country", "France", "--lat", "48.85", "--lng", "2.35")
		require.Error(t, err)

		var reported *reportedError
		assert.ErrorAs(t, err, &reported)
		assert.Contains(t, stderr, "ALERT: could not add city")
		assert.Contains(t, stderr, "Failed to create city")
	})
}

func TestDeleteCommand(t *testing.T) {
	t.Run("Removes the city", func(t *testing.T) {
		cities := testCities()
		srv := fakeAPI(t, cities, false)

		out, _, err := execute(t, srv.URL, "delete", cities[1].ID.String())
		require.NoError(t, err)
		assert.NotContains(t, out, "Porto")
		assert.Contains(t, out, "Lisbon")
		assert.Contains(t, out, "Berlin")
	})

	t.Run("Failure raises an alert", func(t *testing.T) {
		cities := testCities()
		srv := fakeAPI(t, cities, true)

		_, stderr, err := execute(t, srv.URL, "delete", cities[0].ID.String())
		require.Error(t, err)
		assert.Contains(t, stderr, "ALERT: could not delete city")
	})
}

func TestLoadFailureIsNotAnAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, stderr, err := execute(t, srv.URL, "list")
	require.Error(t, err)
	assert.NotContains(t, stderr, "ALERT")
}
