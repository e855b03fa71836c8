// Command seed loads a small demo dataset: two universities with venues,
// an organizer and students, and a handful of events. Events that would
// clash at their venue are demoted to draft instead of aborting the run.
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evex-campus/backend/config"
	"github.com/evex-campus/backend/internal/auth"
	"github.com/evex-campus/backend/internal/events"
	"github.com/evex-campus/backend/internal/models"
	"github.com/evex-campus/backend/internal/universities"
	"github.com/evex-campus/backend/internal/venues"
	"github.com/evex-campus/backend/pkg/database"
	"github.com/evex-campus/backend/pkg/utils"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("running migrations", zap.Error(err))
	}

	uniRepo := universities.NewRepository(pool)
	venueRepo := venues.NewRepository(pool)
	eventRepo := events.NewRepository(pool)
	authRepo := auth.NewRepository(pool)

	north := &models.University{Name: "Northfield University", ShortCode: "NU", Domain: "northfield.edu"}
	south := &models.University{Name: "Southgate Institute", ShortCode: "SGI", Domain: "southgate.edu"}
	for _, u := range []*models.University{north, south} {
		if err := uniRepo.Create(ctx, u); err != nil {
			logger.Fatal("creating university", zap.Error(err), zap.String("name", u.Name))
		}
	}

	hall := &models.Venue{Name: "Main Hall", UniversityID: north.ID, Capacity: 300}
	lab := &models.Venue{Name: "Engineering Lab", UniversityID: north.ID, Capacity: 40}
	audit := &models.Venue{Name: "Auditorium", UniversityID: south.ID, Capacity: 500}
	for _, v := range []*models.Venue{hall, lab, audit} {
		if err := venueRepo.Create(ctx, v); err != nil && !errors.Is(err, venues.ErrDuplicateVenue) {
			logger.Fatal("creating venue", zap.Error(err), zap.String("name", v.Name))
		}
	}

	hash, err := utils.HashPassword("password123")
	if err != nil {
		logger.Fatal("hashing password", zap.Error(err))
	}
	organizer, err := authRepo.Create(ctx, "organizer@northfield.edu", hash, "Olivia Organizer",
		models.RoleOrganizer, auth.CreateProfileParams{UniversityID: &north.ID})
	if err != nil {
		logger.Fatal("creating organizer", zap.Error(err))
	}
	for i := 1; i <= 5; i++ {
		email := fmt.Sprintf("student%d@northfield.edu", i)
		if _, err := authRepo.Create(ctx, email, hash, fmt.Sprintf("Student %d", i),
			models.RoleStudent, auth.CreateProfileParams{UniversityID: &north.ID}); err != nil {
			logger.Fatal("creating student", zap.Error(err), zap.String("email", email))
		}
	}

	nextWeek := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Hour)
	cap40 := 40
	seedEvents := []*models.Event{
		{Title: "Tech Talk: Distributed Systems", StartsAt: nextWeek, VenueID: &hall.ID,
			Visibility: models.VisibilityUniversity, Capacity: &cap40},
		{Title: "Robotics Workshop", StartsAt: nextWeek.Add(3 * time.Hour), VenueID: &lab.ID,
			Visibility: models.VisibilityPublic},
		// Starts one hour into the tech talk at the same venue; expected
		// to clash and land as a draft.
		{Title: "Career Fair Briefing", StartsAt: nextWeek.Add(time.Hour), VenueID: &hall.ID,
			Visibility: models.VisibilityInterUniversity},
	}
	for _, e := range seedEvents {
		e.OrganizerID = organizer.ID
		e.HostUniversityID = north.ID
		e.Status = models.EventPublished
		err := eventRepo.Create(ctx, e)
		if errors.Is(err, events.ErrVenueClash) {
			e.Status = models.EventDraft
			err = eventRepo.Create(ctx, e)
			if err == nil {
				logger.Warn("event demoted to draft on venue clash", zap.String("title", e.Title))
			}
		}
		if err != nil {
			logger.Fatal("creating event", zap.Error(err), zap.String("title", e.Title))
		}
	}

	logger.Info("seed complete",
		zap.Int("universities", 2), zap.Int("venues", 3), zap.Int("users", 6), zap.Int("events", len(seedEvents)))
}
