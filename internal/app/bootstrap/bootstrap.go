// Package bootstrap assembles the shared runtime used by the API and worker
// processes: the sealed domain registry, the stores, the event bus, and the
// engine on top of them.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	petmemory "github.com/Apurer/go-cqrs-platform/internal/domains/pets/adapters/memory"
	petobs "github.com/Apurer/go-cqrs-platform/internal/domains/pets/adapters/observability"
	petpostgres "github.com/Apurer/go-cqrs-platform/internal/domains/pets/adapters/persistence/postgres"
	petapp "github.com/Apurer/go-cqrs-platform/internal/domains/pets/application"
	petports "github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
	storememory "github.com/Apurer/go-cqrs-platform/internal/domains/store/adapters/memory"
	storeobs "github.com/Apurer/go-cqrs-platform/internal/domains/store/adapters/observability"
	storepostgres "github.com/Apurer/go-cqrs-platform/internal/domains/store/adapters/persistence/postgres"
	storeapp "github.com/Apurer/go-cqrs-platform/internal/domains/store/application"
	storeports "github.com/Apurer/go-cqrs-platform/internal/domains/store/ports"

	"github.com/Apurer/go-cqrs-platform/internal/clients/http/partner"
	"github.com/Apurer/go-cqrs-platform/internal/dispatch"
	"github.com/Apurer/go-cqrs-platform/internal/engine"
	engineobs "github.com/Apurer/go-cqrs-platform/internal/engine/observability"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/bus"
	"github.com/Apurer/go-cqrs-platform/internal/eventsourcing/registry"
	rediscache "github.com/Apurer/go-cqrs-platform/internal/eventstore/adapters/cache/redis"
	esmemory "github.com/Apurer/go-cqrs-platform/internal/eventstore/adapters/memory"
	espostgres "github.com/Apurer/go-cqrs-platform/internal/eventstore/adapters/persistence/postgres"
	esports "github.com/Apurer/go-cqrs-platform/internal/eventstore/ports"
	"github.com/Apurer/go-cqrs-platform/internal/platform/config"
	platformkafka "github.com/Apurer/go-cqrs-platform/internal/platform/kafka"
	"github.com/Apurer/go-cqrs-platform/internal/platform/migrations"
	"github.com/Apurer/go-cqrs-platform/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-cqrs-platform/internal/platform/postgres"
	platformredis "github.com/Apurer/go-cqrs-platform/internal/platform/redis"
)

// Settings are the environment-driven inputs shared by both processes.
type Settings struct {
	Postgres config.Postgres
	Redis    config.Redis
	Kafka    config.Kafka
	Partner  config.Partner
	Loop     config.CommandLoop
}

// Runtime is the assembled platform.
type Runtime struct {
	Registry   *registry.Registry
	Bus        *bus.Bus
	Engine     engine.Service
	Events     esports.EventStore
	Snapshots  esports.SnapshotStore
	PetViews   petports.ReadModel
	OrderViews storeports.ReadModel
	Logger     *slog.Logger

	closers []func()
}

// NewRegistry registers every bounded context and seals the result.
func NewRegistry(petViews petports.ReadModel, orderViews storeports.ReadModel) (*registry.Registry, error) {
	reg := registry.New()
	if err := petapp.Register(reg, petViews); err != nil {
		return nil, fmt.Errorf("register pets: %w", err)
	}
	if err := storeapp.Register(reg, orderViews); err != nil {
		return nil, fmt.Errorf("register store: %w", err)
	}
	reg.Seal()
	return reg, nil
}

// Build wires the stores, registry, bus, and engine. Postgres, Redis, Kafka
// and the partner webhook are optional; without Postgres everything runs in memory.
func Build(ctx context.Context, settings Settings, instruments *observability.Instruments) (*Runtime, error) {
	if instruments == nil {
		instruments = observability.Noop()
	}
	if err := settings.Loop.Validate(); err != nil {
		return nil, err
	}
	logger := instruments.Logger
	rt := &Runtime{Logger: logger}

	db, closeDB := platformpostgres.ConnectOrFallback(ctx, settings.Postgres.DSN, logger)
	rt.closers = append(rt.closers, closeDB)
	if err := rt.buildStores(ctx, db, settings.Redis, instruments); err != nil {
		rt.Close()
		return nil, err
	}

	reg, err := NewRegistry(rt.PetViews, rt.OrderViews)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Registry = reg

	rt.Bus = bus.New()
	for _, name := range registry.SortedNames(reg.AllEventHandlers()) {
		rt.Bus.Register(reg.AllEventHandlers()[name])
	}
	if settings.Kafka.Enabled() {
		writer, err := platformkafka.NewWriter(settings.Kafka)
		if err != nil {
			rt.Close()
			return nil, err
		}
		forwarder := platformkafka.NewForwarder(writer, settings.Kafka.Topic, instruments.Tracer("internal.platform.kafka"))
		rt.Bus.Register(forwarder)
		rt.closers = append(rt.closers, func() { _ = forwarder.Close() })
		logger.Info("kafka forwarder enabled", slog.String("topic", settings.Kafka.Topic))
	}
	if settings.Partner.Enabled() {
		httpClient := &http.Client{
			Timeout:   settings.Partner.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(instruments.TracerProvider)),
		}
		client, err := partner.NewPartnerClient(settings.Partner.BaseURL, httpClient)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Bus.Register(partner.NewForwarder(client, settings.Partner.EventTypes...))
		logger.Info("partner webhook enabled", slog.String("baseURL", settings.Partner.BaseURL))
	}

	core := engine.New(reg, rt.Events,
		engine.WithSnapshotStore(rt.Snapshots),
		engine.WithSnapshotEvery(settings.Loop.SnapshotEvery),
		engine.WithBus(rt.Bus),
		engine.WithLogger(logger),
		engine.WithTracer(instruments.Tracer("internal.engine")),
	)
	rt.Engine = engineobs.New(core,
		engineobs.WithLogger(logger),
		engineobs.WithTracer(instruments.Tracer("internal.engine.service")),
		engineobs.WithMeter(instruments.Meter("internal.engine.service")),
	)
	return rt, nil
}

func (rt *Runtime) buildStores(ctx context.Context, db *gorm.DB, redisCfg config.Redis, instruments *observability.Instruments) error {
	logger := instruments.Logger
	var (
		petViews   petports.ReadModel
		orderViews storeports.ReadModel
	)
	if db == nil {
		rt.Events = esmemory.NewEventStore()
		rt.Snapshots = esmemory.NewSnapshotStore()
		petViews = petmemory.NewReadModel()
		orderViews = storememory.NewReadModel()
	} else {
		if err := migrations.Run(db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		rt.Events = espostgres.NewEventStore(db)
		rt.Snapshots = espostgres.NewSnapshotStore(db)
		petViews = petpostgres.NewReadModel(db)
		orderViews = storepostgres.NewReadModel(db)
	}

	client, closeRedis := platformredis.ConnectOrSkip(ctx, redisCfg, logger)
	rt.closers = append(rt.closers, closeRedis)
	if client != nil {
		rt.Snapshots = rediscache.NewSnapshotCache(rt.Snapshots, client,
			rediscache.WithTTL(redisCfg.CacheTTL), rediscache.WithLogger(logger))
	}

	rt.PetViews = petobs.New(petViews,
		petobs.WithLogger(logger),
		petobs.WithTracer(instruments.Tracer("internal.pets.views")),
		petobs.WithMeter(instruments.Meter("internal.pets.views")),
	)
	rt.OrderViews = storeobs.New(orderViews, instruments.Tracer("internal.store.views"), logger)
	return nil
}

// Attach subscribes the registered sagas to the bus so the commands they emit
// go through d. It must be called once the dispatcher exists.
func (rt *Runtime) Attach(d dispatch.Dispatcher) {
	for _, h := range dispatch.SagaHandlers(rt.Registry, d, rt.Logger) {
		rt.Bus.Register(h)
	}
}

// Close releases connections in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// ShutdownTimeout bounds how long processes wait for in-flight work on exit.
const ShutdownTimeout = 5 * time.Second
