package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/internal/catalog"
	"github.com/h2overflow/apiserver/internal/metrics"
	"github.com/h2overflow/apiserver/types"
	"github.com/rs/zerolog"
)

// ActivityRepository defines persistence operations for activity records.
type ActivityRepository interface {
	Create(ctx context.Context, record types.ActivityRecord) (types.ActivityRecord, error)
	ListForUserInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]types.ActivityRecord, error)
}

// LogActivityInput is a validated request to record an activity.
type LogActivityInput struct {
	ActivityID int
	// OccurredOn defaults to today when nil.
	OccurredOn *time.Time
	// SavedLiters, when set, must match the catalog amount.
	SavedLiters *float64
}

// MonthlySummary is the per-day series for one calendar month.
type MonthlySummary struct {
	Month       time.Time
	Days        []types.DailyTotal
	TotalLiters float64
}

// ActivityService encapsulates activity logging and monthly aggregation.
type ActivityService struct {
	repo    ActivityRepository
	catalog *catalog.Catalog
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger
}

func NewActivityService(repo ActivityRepository, c *catalog.Catalog, loc *time.Location, log zerolog.Logger) *ActivityService {
	if loc == nil {
		loc = time.UTC
	}
	return &ActivityService{
		repo:    repo,
		catalog: c,
		loc:     loc,
		now:     time.Now,
		log:     log,
	}
}

// Catalog lists the activities users can log.
func (s *ActivityService) Catalog() []types.ActivityDefinition {
	return s.catalog.List()
}

// Today is the current calendar date in the service timezone.
func (s *ActivityService) Today() time.Time {
	return types.CalendarDate(s.now().In(s.loc))
}

// LogActivity records one occurrence of a catalog activity for userID.
func (s *ActivityService) LogActivity(ctx context.Context, userID uuid.UUID, in LogActivityInput) (types.ActivityRecord, error) {
	def, err := s.catalog.Get(in.ActivityID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return types.ActivityRecord{}, fmt.Errorf("%w: activity %d", ErrNotFound, in.ActivityID)
		}
		return types.ActivityRecord{}, err
	}
	if in.SavedLiters != nil && math.Abs(*in.SavedLiters-def.SavedWater) > 1e-9 {
		return types.ActivityRecord{}, fmt.Errorf("%w: activity %d saves %g liters, got %g",
			ErrValidation, def.ID, def.SavedWater, *in.SavedLiters)
	}

	occurredOn := s.Today()
	if in.OccurredOn != nil {
		occurredOn = types.CalendarDate(*in.OccurredOn)
	}

	record, err := s.repo.Create(ctx, types.ActivityRecord{
		UserID:      userID,
		ActivityID:  def.ID,
		OccurredOn:  occurredOn,
		SavedLiters: def.SavedWater,
	})
	if err != nil {
		return types.ActivityRecord{}, fmt.Errorf("create activity: %w", err)
	}

	metrics.RecordActivity(def.Slug, def.SavedWater)
	return record, nil
}

// ListForUserInRange returns userID's records dated within [start, end].
func (s *ActivityService) ListForUserInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]types.ActivityRecord, error) {
	start, end = types.CalendarDate(start), types.CalendarDate(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: range end before start", ErrValidation)
	}
	records, err := s.repo.ListForUserInRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return records, nil
}

// MonthActivities returns the raw records of today's month.
func (s *ActivityService) MonthActivities(ctx context.Context, userID uuid.UUID, today time.Time) ([]types.ActivityRecord, error) {
	start, end := MonthBounds(today)
	return s.ListForUserInRange(ctx, userID, start, end)
}

// MonthlySummary aggregates userID's records for today's month.
func (s *ActivityService) MonthlySummary(ctx context.Context, userID uuid.UUID, today time.Time) (MonthlySummary, error) {
	records, err := s.MonthActivities(ctx, userID, today)
	if err != nil {
		return MonthlySummary{}, err
	}

	days, err := BuildMonthlySeries(today, records)
	if err != nil {
		if errors.Is(err, ErrIntegrityFault) {
			metrics.RecordIntegrityFault()
			s.log.Error().
				Err(err).
				Str("user_id", userID.String()).
				Str("month", today.Format("2006-01")).
				Msg("activity aggregation integrity fault")
		}
		return MonthlySummary{}, err
	}

	start, _ := MonthBounds(today)
	return MonthlySummary{
		Month:       start,
		Days:        days,
		TotalLiters: SumLiters(days),
	}, nil
}
