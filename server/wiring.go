package main

import (
	"context"
	"errors"
	"fmt"

	"ticketly/internal/auth"
	"ticketly/internal/events"
	"ticketly/internal/gateway"
	"ticketly/internal/locks"
	"ticketly/internal/notifications"
	"ticketly/internal/reservations"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/users"
	"ticketly/internal/waitlist"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"
	"ticketly/pkg/ratelimit"
)

// app is the wired object graph shared by the HTTP API and the gateway
type app struct {
	engine      *reservations.Engine
	auth        auth.Service
	events      events.Service
	registry    *notifications.ConnectionRegistry
	gateway     *gateway.Server
	rateLimiter *ratelimit.RateLimiter

	// consumers fan broker messages into the local registry until ctx ends
	consumers []func(ctx context.Context) error
	closers   []func() error
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// validateBackends rejects combinations that cannot work together. The
// memory store holds one mutex for each whole transaction and promotion reads
// the waitlist inside it, so a networked waitlist would stall every event.
func validateBackends(cfg *config.Config) error {
	if cfg.Reservation.StorageBackend == "memory" && cfg.Reservation.WaitlistBackend != "memory" {
		return fmt.Errorf("storage backend %q requires the memory waitlist backend, got %q",
			cfg.Reservation.StorageBackend, cfg.Reservation.WaitlistBackend)
	}
	return nil
}

func buildApp(ctx context.Context, cfg *config.Config, db *database.DB, log *logger.Logger) (*app, error) {
	if err := validateBackends(cfg); err != nil {
		return nil, err
	}
	a := &app{registry: notifications.NewConnectionRegistry()}

	var (
		store     reservations.Store
		eventRepo events.Repository
		userRepo  users.Repository
	)
	// Inventory storage
	switch cfg.Reservation.StorageBackend {
	case "postgres":
		store = reservations.NewStore(db.PostgreSQL)
		eventRepo = events.NewRepository(db.PostgreSQL)
		userRepo = users.NewRepository(db.PostgreSQL)
	case "memory":
		mem := reservations.NewMemoryStore()
		store, eventRepo = mem, mem
		userRepo = users.NewMemoryRepository()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Reservation.StorageBackend)
	}

	var queue reservations.Waitlist
	// Waitlist queue
	switch cfg.Reservation.WaitlistBackend {
	case "redis":
		queue = waitlist.NewRedisQueue(db.Redis)
	case "postgres":
		queue = waitlist.NewGormQueue(db.PostgreSQL)
	case "memory":
		queue = waitlist.NewMemoryQueue()
	default:
		return nil, fmt.Errorf("unknown waitlist backend %q", cfg.Reservation.WaitlistBackend)
	}

	var locker locks.Locker
	// Per-event locks
	switch cfg.Reservation.LockBackend {
	case "redis":
		locker = locks.NewRedisLocker(db.Redis, cfg.Redis.LockTTL)
	case "local":
		locker = locks.NewRegistry()
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Reservation.LockBackend)
	}

	// Shared cache and rate limiter need Redis; fall back to process memory
	var cacheService cache.Service
	if db.Redis != nil {
		cacheService = cache.NewService(db.Redis)
		if cfg.RateLimit.Enabled {
			a.rateLimiter = ratelimit.NewRateLimiter(db.Redis, &ratelimit.Config{
				Enabled:             cfg.RateLimit.Enabled,
				WindowDuration:      cfg.RateLimit.WindowDuration,
				DefaultRequests:     cfg.RateLimit.DefaultRequests,
				PublicRequests:      cfg.RateLimit.PublicRequests,
				AuthRequests:        cfg.RateLimit.AuthRequests,
				ReservationRequests: cfg.RateLimit.ReservationRequests,
				AdminRequests:       cfg.RateLimit.AdminRequests,
				HealthRequests:      cfg.RateLimit.HealthRequests,
				WhitelistedIPs:      cfg.RateLimit.WhitelistedIPs,
			})
		}
	} else {
		cacheService = cache.NewMemoryService()
	}

	// Promotion notices
	notifier, err := a.wireNotifications(cfg)
	if err != nil {
		_ = a.close()
		return nil, err
	}

	a.events = events.NewService(eventRepo)
	a.events.SetCacheService(cacheService)
	a.auth = auth.NewService(userRepo, cfg)

	// Reservation engine
	a.engine = reservations.NewEngine(store, locker, queue, notifier, reservations.Options{
		OperationTimeout: cfg.Reservation.OperationTimeout,
		NotifyTimeout:    cfg.Reservation.NotifyTimeout,
		LogHistoryLimit:  cfg.Reservation.LogHistoryLimit,
		SeatMaps:         seats.NewMapCache(cacheService, cfg.Redis.SeatMapTTL),
		Events:           a.events,
		Logger:           log,
	})

	// Line-protocol gateway
	a.gateway = gateway.NewServer(gateway.Config{
		Addr:           cfg.GetGatewayAddress(),
		MaxConnections: cfg.Gateway.MaxConnections,
		IdleTimeout:    cfg.Gateway.IdleTimeout,
		MaxLineBytes:   cfg.Gateway.MaxLineBytes,
	}, a.engine, a.auth, a.registry)

	// A memory store starts empty; load the default catalog
	if cfg.Reservation.StorageBackend == "memory" {
		n, err := events.SeedCatalog(ctx, a.events, events.DefaultCatalog())
		if err != nil {
			_ = a.close()
			return nil, fmt.Errorf("failed to load default catalog: %w", err)
		}
		log.Info("default catalog loaded", "events", n)
	}

	if err := bootstrapAdmin(ctx, cfg, a.auth, log); err != nil {
		_ = a.close()
		return nil, err
	}

	return a, nil
}

// wireNotifications picks where promotion notices go. Without a broker the
// local registry delivers directly; with one, every instance publishes and
// every instance consumes into its own registry.
func (a *app) wireNotifications(cfg *config.Config) (reservations.Notifier, error) {
	switch cfg.Notifications.Broker {
	case "none", "":
		return a.registry, nil

	case "kafka":
		kcfg := notifications.DefaultKafkaConfig()
		kcfg.Brokers = cfg.Notifications.KafkaBrokers
		kcfg.Topic = cfg.Notifications.KafkaTopic
		kcfg.GroupID = cfg.Notifications.KafkaGroupID

		publisher, err := notifications.NewKafkaPublisher(kcfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, publisher.Close)

		consumer, err := notifications.NewKafkaConsumer(kcfg, a.registry.Deliver)
		if err != nil {
			return nil, err
		}
		// Every instance joins its own group so each one sees every promotion
		workers := cfg.Notifications.ConsumerWorkers
		a.consumers = append(a.consumers, func(ctx context.Context) error {
			return consumer.Run(ctx, workers)
		})
		return notifications.NewBrokerSink(publisher, a.registry), nil

	case "rabbitmq":
		rcfg := notifications.RabbitMQConfig{
			URL:      cfg.Notifications.RabbitMQURL,
			Exchange: cfg.Notifications.RabbitMQExchange,
		}

		publisher, err := notifications.NewRabbitMQPublisher(rcfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, publisher.Close)

		consumer := notifications.NewRabbitMQConsumer(rcfg, a.registry.Deliver)
		a.consumers = append(a.consumers, consumer.Run)
		return notifications.NewBrokerSink(publisher, a.registry), nil

	default:
		return nil, fmt.Errorf("unknown notifications broker %q", cfg.Notifications.Broker)
	}
}

// bootstrapAdmin creates the configured admin account if it does not exist
func bootstrapAdmin(ctx context.Context, cfg *config.Config, svc auth.Service, log *logger.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := svc.CreateUser(ctx, cfg.AdminUsername, cfg.AdminPassword, users.RoleAdmin)
	if errors.Is(err, auth.ErrUserAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	log.Info("admin user created", "username", cfg.AdminUsername)
	return nil
}
