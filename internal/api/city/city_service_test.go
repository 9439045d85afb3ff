package city

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-worldwise/internal/types"
)

func sampleCity(name, country string) types.City {
	return types.City{
		ID:       uuid.New(),
		CityName: name,
		Country:  country,
		Date:     time.Date(2027, 10, 31, 15, 59, 59, 0, time.UTC),
		Position: types.Position{Lat: 38.72, Lng: -9.14},
	}
}

func TestCityService_GetAllCities(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("second read is served from cache", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewCityService(mockRepo, logger, time.Minute, time.Minute)
		cities := []types.City{sampleCity("Lisbon", "Portugal"), sampleCity("Madrid", "Spain")}
		mockRepo.On("ListCities", mock.Anything).Return(cities, nil).Once()

		first, err := service.GetAllCities(ctx)
		require.NoError(t, err)
		second, err := service.GetAllCities(ctx)
		require.NoError(t, err)

		assert.Equal(t, cities, first)
		assert.Equal(t, cities, second)
		mockRepo.AssertNumberOfCalls(t, "ListCities", 1)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewCityService(mockRepo, logger, time.Minute, time.Minute)
		dbErr := errors.New("connection refused")
		mockRepo.On("ListCities", mock.Anything).Return(nil, dbErr).Once()
		mockRepo.On("ListCities", mock.Anything).Return([]types.City{}, nil).Once()

		_, err := service.GetAllCities(ctx)
		assert.ErrorIs(t, err, dbErr)

		cities, err := service.GetAllCities(ctx)
		require.NoError(t, err)
		assert.Empty(t, cities)
		mockRepo.AssertExpectations(t)
	})
}

func TestCityService_GetCity(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	service := NewCityService(mockRepo, slog.Default(), time.Minute, time.Minute)

	lisbon := sampleCity("Lisbon", "Portugal")
	mockRepo.On("GetCity", mock.Anything, lisbon.ID).Return(&lisbon, nil).Once()

	got, err := service.GetCity(ctx, lisbon.ID)
	require.NoError(t, err)
	assert.Equal(t, lisbon, *got)

	got, err = service.GetCity(ctx, lisbon.ID)
	require.NoError(t, err)
	assert.Equal(t, lisbon, *got)
	mockRepo.AssertNumberOfCalls(t, "GetCity", 1)

	missing := uuid.New()
	mockRepo.On("GetCity", mock.Anything, missing).Return(nil, types.ErrNotFound).Once()
	_, err = service.GetCity(ctx, missing)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCityService_CreateCity(t *testing.T) {
	ctx := context.Background()

	t.Run("invalidates the list cache", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewCityService(mockRepo, slog.Default(), time.Minute, time.Minute)

		lisbon := sampleCity("Lisbon", "Portugal")
		paris := sampleCity("Paris", "France")
		mockRepo.On("ListCities", mock.Anything).Return([]types.City{lisbon}, nil).Once()
		mockRepo.On("SaveCity", mock.Anything, paris.Payload()).Return(&paris, nil).Once()
		mockRepo.On("ListCities", mock.Anything).Return([]types.City{lisbon, paris}, nil).Once()

		_, err := service.GetAllCities(ctx)
		require.NoError(t, err)

		created, err := service.CreateCity(ctx, paris.Payload())
		require.NoError(t, err)
		assert.Equal(t, paris.ID, created.ID)

		cities, err := service.GetAllCities(ctx)
		require.NoError(t, err)
		assert.Len(t, cities, 2)

		// The created city is served from cache without a GetCity round trip
		got, err := service.GetCity(ctx, paris.ID)
		require.NoError(t, err)
		assert.Equal(t, paris, *got)
		mockRepo.AssertExpectations(t)
		mockRepo.AssertNotCalled(t, "GetCity", mock.Anything, mock.Anything)
	})

	t.Run("rejects invalid payloads before touching the repository", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewCityService(mockRepo, slog.Default(), time.Minute, time.Minute)

		_, err := service.CreateCity(ctx, types.NewCity{Country: "France"})
		assert.ErrorIs(t, err, types.ErrBadRequest)
		mockRepo.AssertNotCalled(t, "SaveCity", mock.Anything, mock.Anything)
	})
}

func TestCityService_DeleteCity(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	service := NewCityService(mockRepo, slog.Default(), time.Minute, time.Minute)

	lisbon := sampleCity("Lisbon", "Portugal")
	mockRepo.On("GetCity", mock.Anything, lisbon.ID).Return(&lisbon, nil).Once()
	mockRepo.On("DeleteCity", mock.Anything, lisbon.ID).Return(nil).Once()
	mockRepo.On("GetCity", mock.Anything, lisbon.ID).Return(nil, types.ErrNotFound).Once()

	_, err := service.GetCity(ctx, lisbon.ID)
	require.NoError(t, err)

	require.NoError(t, service.DeleteCity(ctx, lisbon.ID))

	_, err = service.GetCity(ctx, lisbon.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	mockRepo.AssertExpectations(t)

	mockRepo.On("DeleteCity", mock.Anything, lisbon.ID).Return(types.ErrNotFound).Once()
	assert.ErrorIs(t, service.DeleteCity(ctx, lisbon.ID), types.ErrNotFound)
}

func TestCityService_WriteDuringSlowRead(t *testing.T) {
	ctx := context.Background()

	t.Run("delete is not undone by an older list", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewCityService(mockRepo, slog.Default(), time.Minute, time.Minute)
		lisbon := sampleCity("Lisbon", "Portugal")

		listing := make(chan struct{})
		release := make(chan struct{})
		mockRepo.On("ListCities", mock.Anything).
			Run(func(mock.Arguments) {
				close(listing)
				<-release
			}).
			Return([]types.City{lisbon}, nil).Once()
		mockRepo.On("DeleteCity", mock.Anything, lisbon.ID).Return(nil).Once()
		mockRepo.On("ListCities", mock.Anything).Return([]types.City{}, nil).Once()

		done := make(chan struct{})
		go func() {
			defer close(done)
			cities, err := service.GetAllCities(ctx)
			assert.NoError(t, err)
			assert.Equal(t, []types.City{lisbon}, cities)
		}()

		<-listing
		require.NoError(t, service.DeleteCity(ctx, lisbon.ID))
		close(release)
		<-done

		cities, err := service.GetAllCities(ctx)
		require.NoError(t, err)
		assert.Empty(t, cities)
		mockRepo.AssertExpectations(t)
	})

	t.Run("create is not hidden by an older list", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewCityService(mockRepo, slog.Default(), time.Minute, time.Minute)
		paris := sampleCity("Paris", "France")

		listing := make(chan struct{})
		release := make(chan struct{})
		mockRepo.On("ListCities", mock.Anything).
			Run(func(mock.Arguments) {
				close(listing)
				<-release
			}).
			Return([]types.City{}, nil).Once()
		mockRepo.On("SaveCity", mock.Anything, paris.Payload()).Return(&paris, nil).Once()
		mockRepo.On("ListCities", mock.Anything).Return([]types.City{paris}, nil).Once()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := service.GetAllCities(ctx)
			assert.NoError(t, err)
		}()

		<-listing
		_, err := service.CreateCity(ctx, paris.Payload())
		require.NoError(t, err)
		close(release)
		<-done

		cities, err := service.GetAllCities(ctx)
		require.NoError(t, err)
		assert.Equal(t, []types.City{paris}, cities)
		mockRepo.AssertExpectations(t)
	})

	t.Run("single city read racing a delete is not cached", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewCityService(mockRepo, slog.Default(), time.Minute, time.Minute)
		lisbon := sampleCity("Lisbon", "Portugal")

		reading := make(chan struct{})
		release := make(chan struct{})
		mockRepo.On("GetCity", mock.Anything, lisbon.ID).
			Run(func(mock.Arguments) {
				close(reading)
				<-release
			}).
			Return(&lisbon, nil).Once()
		mockRepo.On("DeleteCity", mock.Anything, lisbon.ID).Return(nil).Once()
		mockRepo.On("GetCity", mock.Anything, lisbon.ID).Return(nil, types.ErrNotFound).Once()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := service.GetCity(ctx, lisbon.ID)
			assert.NoError(t, err)
		}()

		<-reading
		require.NoError(t, service.DeleteCity(ctx, lisbon.ID))
		close(release)
		<-done

		_, err := service.GetCity(ctx, lisbon.ID)
		assert.ErrorIs(t, err, types.ErrNotFound)
		mockRepo.AssertExpectations(t)
	})
}
