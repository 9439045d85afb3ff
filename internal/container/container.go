package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-worldwise/app/db"
	"github.com/FACorreiaa/go-worldwise/config"
	"github.com/FACorreiaa/go-worldwise/internal/api/city"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	Pool          *pgxpool.Pool
	ConnectionURL string
	CityService   city.Service
	CityHandler   *city.Handler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	c := Wire(cfg, logger, pool)
	c.Pool = pool
	c.ConnectionURL = dbConfig.ConnectionURL
	return c, nil
}

// Wire builds the city repository, service and handler on top of db.
func Wire(cfg *config.Config, logger *slog.Logger, db city.DB) *Container {
	cityRepo := city.NewCityRepository(db, logger)
	cityService := city.NewCityService(cityRepo, logger, cfg.Cache.Expiration, cfg.Cache.CleanupInterval)
	cityHandler := city.NewCityHandler(cityService, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		CityService: cityService,
		CityHandler: cityHandler,
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations() error {
	return database.RunMigrations(c.ConnectionURL, c.Logger)
}
