package events

import (
	"context"
	"errors"
	"time"
)

// DefaultCatalog is the starter set of events loaded by the seeder and by
// in-memory deployments.
func DefaultCatalog() []CreateEventRequest {
	return []CreateEventRequest{
		{Name: "웃는남자", Description: "뮤지컬 웃는남자", Date: time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC), Capacity: 100},
		{Name: "베르테르", Description: "뮤지컬 베르테르", Date: time.Date(2025, 1, 13, 19, 0, 0, 0, time.UTC), Capacity: 80},
		{Name: "킹키부츠", Description: "뮤지컬 킹키부츠", Date: time.Date(2025, 1, 31, 19, 0, 0, 0, time.UTC), Capacity: 120},
	}
}

// SeedCatalog creates every event in list, skipping names that already exist.
// It returns how many events were created.
func SeedCatalog(ctx context.Context, svc Service, list []CreateEventRequest) (int, error) {
	created := 0
	for _, req := range list {
		_, err := svc.CreateEvent(ctx, req)
		if errors.Is(err, ErrDuplicateEvent) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
