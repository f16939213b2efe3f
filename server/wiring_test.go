package main

import (
	"context"
	"testing"

	"ticketly/internal/reservations"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/users"
	"ticketly/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	cfg := config.Load()
	cfg.Reservation.StorageBackend = "memory"
	cfg.Reservation.WaitlistBackend = "memory"
	cfg.Reservation.LockBackend = "local"
	cfg.Notifications.Broker = "none"
	cfg.RateLimit.Enabled = false
	cfg.AdminUsername = ""
	cfg.AdminPassword = ""
	return cfg
}

func TestBuildAppInMemory(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.AdminUsername = "root"
	cfg.AdminPassword = "rootpass"

	a, err := buildApp(ctx, cfg, &database.DB{}, logger.Discard())
	require.NoError(t, err)
	defer a.close()

	assert.Nil(t, a.rateLimiter)
	assert.Empty(t, a.consumers)

	list, err := a.engine.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	admin, err := a.auth.Authenticate(ctx, "root", "rootpass")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	user, err := a.auth.CreateUser(ctx, "alice", "secret", users.RoleUser)
	require.NoError(t, err)

	res := a.engine.Reserve(ctx, user.ID, list[0].ID, "A1")
	assert.Equal(t, reservations.KindSuccess, res.Kind, res.Message)

	grid, err := a.engine.GetSeatAvailability(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Reserved)
	assert.Contains(t, grid.Render(), "[X]")

	a.engine.Drain()
}

func TestBootstrapAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()

	a, err := buildApp(ctx, cfg, &database.DB{}, logger.Discard())
	require.NoError(t, err)
	defer a.close()

	cfg.AdminUsername = "root"
	cfg.AdminPassword = "rootpass"
	require.NoError(t, bootstrapAdmin(ctx, cfg, a.auth, logger.Discard()))
	require.NoError(t, bootstrapAdmin(ctx, cfg, a.auth, logger.Discard()))
}

func TestBuildAppRejectsUnknownBackends(t *testing.T) {
	ctx := context.Background()

	cases := map[string]func(*config.Config){
		"storage":  func(c *config.Config) { c.Reservation.StorageBackend = "sqlite" },
		"waitlist": func(c *config.Config) { c.Reservation.WaitlistBackend = "disk" },
		"locks":    func(c *config.Config) { c.Reservation.LockBackend = "zookeeper" },
		"broker":   func(c *config.Config) { c.Notifications.Broker = "nats" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := memoryConfig()
			mutate(cfg)
			_, err := buildApp(ctx, cfg, &database.DB{}, logger.Discard())
			assert.Error(t, err)
		})
	}
}

func TestMemoryStorageRequiresMemoryWaitlist(t *testing.T) {
	for _, backend := range []string{"redis", "postgres"} {
		cfg := memoryConfig()
		cfg.Reservation.WaitlistBackend = backend

		_, err := buildApp(context.Background(), cfg, &database.DB{}, logger.Discard())
		assert.ErrorContains(t, err, "requires the memory waitlist backend", backend)
	}

	assert.NoError(t, validateBackends(memoryConfig()))
}
