package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	catalogmetrics "labelforge/internal/catalog/metrics"
	catalog "labelforge/internal/catalog/service"
	"labelforge/internal/label/fontsize"
	"labelforge/internal/lineage/metrics"
	"labelforge/internal/lineage/ports"
	lineage "labelforge/internal/lineage/service"
	"labelforge/internal/lineage/store/memory"
	pgstore "labelforge/internal/lineage/store/postgres"
	redisstore "labelforge/internal/lineage/store/redis"
	sqlitestore "labelforge/internal/lineage/store/sqlite"
	"labelforge/internal/platform/config"
	"labelforge/internal/platform/postgres"
	"labelforge/internal/platform/redis"
	"labelforge/internal/platform/sqlite"
	"labelforge/pkg/platform/circuit"
)

const shutdownTimeout = 10 * time.Second

// openStore connects the configured backend. The returned func releases it.
func (a *app) openStore(ctx context.Context) (ports.Store, func() error, error) {
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		return memory.New(), func() error { return nil }, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, a.cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlitestore.New(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, a.cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store, err := pgstore.New(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	case config.DriverRedis:
		client, err := redis.New(ctx, a.cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client.Client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

// openLineage starts the persistence adapter over the configured store. The
// returned func flushes queued writes, stops the writer and closes the
// backend.
func (a *app) openLineage(ctx context.Context) (*lineage.Service, func() error, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open lineage store: %w", err)
	}
	lc := a.cfg.Lineage
	opts := []lineage.Option{
		lineage.WithLogger(a.logger),
		lineage.WithMetrics(metrics.New(a.registry)),
		lineage.WithTimeout(lc.OperationTimeout),
		lineage.WithQueueSize(lc.WriteQueueSize),
		lineage.WithBreaker(circuit.New("lineage-store",
			circuit.WithFailureThreshold(lc.FailureThreshold),
			circuit.WithSuccessThreshold(lc.SuccessThreshold),
			circuit.WithCooldown(lc.BreakerCooldown),
		)),
	}
	if a.cfg.Store.Driver == config.DriverPostgres {
		opts = append(opts, lineage.WithOutageClassifier(postgres.IsConnectionError))
	}
	svc, err := lineage.New(store, opts...)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	closer := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(svc.Close(ctx), closeStore())
	}
	return svc, closer, nil
}

// newNormalizer builds the normalization pipeline on top of src.
func (a *app) newNormalizer(src catalog.LineageSource) *catalog.Service {
	return catalog.New(
		catalog.WithLogger(a.logger),
		catalog.WithMetrics(catalogmetrics.New(a.registry)),
		catalog.WithLineageSource(src),
		catalog.WithMinConfidence(a.cfg.Lineage.MinConfidence),
	)
}

// fontScheme loads the configured scheme file over the defaults.
func (a *app) fontScheme() (fontsize.Scheme, error) {
	if a.cfg.Render.FontSchemePath == "" {
		return fontsize.DefaultScheme(), nil
	}
	f, err := os.Open(a.cfg.Render.FontSchemePath)
	if err != nil {
		return fontsize.Scheme{}, fmt.Errorf("open font scheme: %w", err)
	}
	defer f.Close()
	return fontsize.LoadScheme(f)
}
