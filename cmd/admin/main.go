// admin manages the event catalog directly against the database: creating
// and editing events and listing who holds which seat.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/reservations"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const dateLayout = "2006-01-02 15:04"

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			printHelp()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		printHelp()
		return nil
	}

	// Load configuration; the CLI always talks to the database
	_ = godotenv.Load()
	cfg := config.Load()
	cfg.Reservation.StorageBackend = "postgres"
	cfg.Reservation.WaitlistBackend = "postgres"
	cfg.Reservation.LockBackend = "local"
	cfg.RateLimit.Enabled = false

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := events.NewService(events.NewRepository(db.PostgreSQL))
	store := reservations.NewStore(db.PostgreSQL)

	// Dispatch subcommand
	switch args[0] {
	case "create-event":
		return createEvent(ctx, svc, args[1:])
	case "update-event":
		return updateEvent(ctx, svc, store, args[1:])
	case "list-events":
		return listEvents(ctx, store)
	case "reservations":
		return listReservations(ctx, store, args[1:])
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func createEvent(ctx context.Context, svc events.Service, args []string) error {
	var req events.CreateEventRequest
	var date string

	flagSet := pflag.NewFlagSet("create-event", pflag.ContinueOnError)
	flagSet.StringVar(&req.Name, "name", "", "single-word event name")
	flagSet.StringVar(&req.Description, "description", "", "free-text description")
	flagSet.StringVar(&date, "date", "", "start time, "+dateLayout)
	flagSet.IntVar(&req.Capacity, "capacity", 0, "number of seats")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if req.Name == "" || date == "" || req.Capacity <= 0 {
		return fmt.Errorf("%w: create-event needs --name, --date and --capacity", errUsage)
	}

	when, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}
	req.Date = when

	event, err := svc.CreateEvent(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("created %s (%s) with %d seats\n", event.Name, event.ID, event.Capacity)
	return nil
}

func updateEvent(ctx context.Context, svc events.Service, store reservations.Store, args []string) error {
	var ref, name, description, date string

	flagSet := pflag.NewFlagSet("update-event", pflag.ContinueOnError)
	flagSet.StringVar(&ref, "event", "", "event id or name")
	flagSet.StringVar(&name, "name", "", "new name")
	flagSet.StringVar(&description, "description", "", "new description")
	flagSet.StringVar(&date, "date", "", "new start time, "+dateLayout)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if ref == "" {
		return fmt.Errorf("%w: update-event needs --event", errUsage)
	}

	id, err := resolveEvent(ctx, store, ref)
	if err != nil {
		return err
	}

	var req events.UpdateEventRequest
	// Only flags the caller passed are updated
	if flagSet.Changed("name") {
		req.Name = &name
	}
	if flagSet.Changed("description") {
		req.Description = &description
	}
	if flagSet.Changed("date") {
		when, err := time.Parse(dateLayout, date)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		req.Date = &when
	}

	event, err := svc.UpdateEvent(ctx, id, req)
	if err != nil {
		return err
	}
	fmt.Printf("updated %s (%s)\n", event.Name, event.ID)
	return nil
}

func listEvents(ctx context.Context, store reservations.Store) error {
	list, err := store.ListEvents(ctx)
	if err != nil {
		return err
	}

	// Table output
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATE\tAVAILABLE\tCAPACITY")
	for _, e := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", e.ID, e.Name, e.Date.Format(dateLayout), e.AvailableTickets, e.Capacity)
	}
	return w.Flush()
}

func listReservations(ctx context.Context, store reservations.Store, args []string) error {
	var ref string

	flagSet := pflag.NewFlagSet("reservations", pflag.ContinueOnError)
	flagSet.StringVar(&ref, "event", "", "event id or name")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if ref == "" {
		return fmt.Errorf("%w: reservations needs --event", errUsage)
	}

	id, err := resolveEvent(ctx, store, ref)
	if err != nil {
		return err
	}

	list, err := store.ListEventReservations(ctx, id)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no reservations")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEAT\tUSER\tRESERVED AT")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.SeatNumber, r.UserID, r.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

// resolveEvent accepts either a uuid or an exact event name
func resolveEvent(ctx context.Context, store reservations.Store, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	list, err := store.ListEvents(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, e := range list {
		if e.Name == ref {
			return e.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no event named %q", ref)
}

func printHelp() {
	fmt.Fprint(os.Stderr, strings.TrimLeft(`
Manage the ticketly event catalog.

Usage:
  admin create-event --name NAME --date "YYYY-MM-DD HH:MM" --capacity N [--description TEXT]
  admin update-event --event ID|NAME [--name NAME] [--description TEXT] [--date "YYYY-MM-DD HH:MM"]
  admin list-events
  admin reservations --event ID|NAME

Connection settings come from the same environment as the server (DB_HOST, DB_NAME, ...).
`, "\n"))
}
