package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"ticketly/internal/auth"
	"ticketly/internal/events"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/users"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Seeder struct {
	db     *database.DB
	auth   auth.Service
	events events.Service
}

func main() {
	var clean bool
	var password string

	flags := pflag.NewFlagSet("seed", pflag.ExitOnError)
	flags.BoolVar(&clean, "clean", true, "truncate every table before seeding")
	flags.StringVar(&password, "password", "qwerty", "password for the seeded accounts")
	_ = flags.Parse(os.Args[1:])

	fmt.Println("Starting ticketly database seeder...")

	// Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	// seeding always targets the database, whatever the server runs on
	cfg.Reservation.StorageBackend = "postgres"

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:     db,
		auth:   auth.NewService(users.NewRepository(db.PostgreSQL), cfg),
		events: events.NewService(events.NewRepository(db.PostgreSQL)),
	}

	// Clean database
	if clean {
		fmt.Println("\nCleaning database...")
		if err := seeder.CleanDatabase(); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
	}

	// Seed data
	fmt.Println("\nSeeding database...")
	if err := seeder.SeedAll(context.Background(), password); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\nSeeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	// Order matters due to foreign key constraints; delete in reverse dependency order
	tables := []string{
		"activity_logs",
		"waitlist_entries",
		"reservations",
		"seats",
		"events",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds accounts and the default catalog
func (s *Seeder) SeedAll(ctx context.Context, password string) error {
	// Seed users first (no dependencies)
	if err := s.SeedUsers(ctx, password); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	// Seed events with their seat rows
	fmt.Println("  Seeding events...")
	n, err := events.SeedCatalog(ctx, s.events, events.DefaultCatalog())
	if err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}
	fmt.Printf("    Created %d events\n", n)

	// cached seat maps and event lists would describe the old rows
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}

	return nil
}

// SeedUsers creates one admin and two regular users
func (s *Seeder) SeedUsers(ctx context.Context, password string) error {
	fmt.Println("  Seeding users...")

	// Every account gets the same password
	accounts := []struct {
		username string
		role     users.Role
	}{
		{"admin", users.RoleAdmin},
		{"alice", users.RoleUser},
		{"bob", users.RoleUser},
	}

	for _, a := range accounts {
		user, err := s.auth.CreateUser(ctx, a.username, password, a.role)
		if errors.Is(err, auth.ErrUserAlreadyExists) {
			fmt.Printf("    Skipped existing user: %s\n", a.username)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", a.username, err)
		}
		fmt.Printf("    Created user: %s (%s)\n", user.Username, user.Role)
	}

	return nil
}
