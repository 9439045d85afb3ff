package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	CityRequestsTotal             metric.Int64Counter
	CacheHitsTotal                metric.Int64Counter
	DbQueryDurationSeconds        metric.Float64Histogram
	DbQueryErrorsTotal            metric.Int64Counter
	StoreOperationsTotal          metric.Int64Counter
	StoreOperationDurationSeconds metric.Float64Histogram
	StoreStaleResponsesTotal      metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider. Instruments
// created before otel.SetMeterProvider is called are delegated to the
// provider once it is set.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("WorldWise")
		var err error
		m := &AppMetrics{}

		m.CityRequestsTotal, err = meter.Int64Counter(
			"city_requests_total",
			metric.WithDescription("Total number of city API requests served"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create city_requests_total: %v", err)
		}

		m.CacheHitsTotal, err = meter.Int64Counter(
			"city_cache_hits_total",
			metric.WithDescription("Total number of city reads served from the in-memory cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create city_cache_hits_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.StoreOperationsTotal, err = meter.Int64Counter(
			"store_operations_total",
			metric.WithDescription("Total number of city store operations by outcome"),
			metric.WithUnit("{operation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create store_operations_total: %v", err)
		}

		m.StoreOperationDurationSeconds, err = meter.Float64Histogram(
			"store_operation_duration_seconds",
			metric.WithDescription("Duration of city store operations in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create store_operation_duration_seconds: %v", err)
		}

		m.StoreStaleResponsesTotal, err = meter.Int64Counter(
			"store_stale_responses_total",
			metric.WithDescription("Total number of responses discarded because a newer request superseded them"),
			metric.WithUnit("{response}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create store_stale_responses_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance, initializing it
// on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
