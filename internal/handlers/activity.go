package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/h2overflow/apiserver/internal/services"
	"github.com/h2overflow/apiserver/types"
	"github.com/rs/zerolog"
)

// ActivityHandler serves the catalog and the caller's activity records.
type ActivityHandler struct {
	activities *services.ActivityService
	auth       *services.AuthService
	log        zerolog.Logger
}

func NewActivityHandler(activities *services.ActivityService, authService *services.AuthService, log zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activities: activities,
		auth:       authService,
		log:        log,
	}
}

// ActivityRouter registers activity routes on the given router.
func ActivityRouter(r chi.Router, h *ActivityHandler) {
	r.Get("/", h.Catalog)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.auth))
		r.Post("/create", h.Create)
		r.Get("/month", h.Month)
		r.Get("/month/summary", h.Summary)
	})
}

// ActivityDate accepts YYYY-MM-DD or RFC 3339 and keeps the calendar date
// as written.
type ActivityDate struct {
	time.Time
}

func (d *ActivityDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.New("created_at must be a string")
	}
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(types.DateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("created_at %q is not a date", raw)
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

type CreateActivityRequest struct {
	ActivityID   int           `json:"activity_id" validate:"required,gt=0"`
	CreatedAt    *ActivityDate `json:"created_at"`
	LittersSaved *float64      `json:"litters_saved" validate:"omitempty,gt=0"`
}

type CatalogResponse struct {
	Success    bool                       `json:"success"`
	Activities []types.ActivityDefinition `json:"activities"`
}

type MonthActivitiesResponse struct {
	Success         bool                   `json:"success"`
	MonthActivities []types.ActivityRecord `json:"month_activities"`
}

type SummaryDay struct {
	Date        string  `json:"date"`
	TotalLiters float64 `json:"total_liters"`
	Amount      float64 `json:"amount"`
}

type SummaryResponse struct {
	Success     bool         `json:"success"`
	Unit        types.Units  `json:"unit"`
	Days        []SummaryDay `json:"days"`
	TotalLiters float64      `json:"total_liters"`
	Amount      float64      `json:"amount"`
}

// Catalog lists the activities that can be logged.
func (h *ActivityHandler) Catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{Success: true, Activities: h.activities.Catalog()})
}

// Create logs one activity for the caller.
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	claim, err := claimFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Tokens outlive account deletion; only existing users may log.
	if _, err := h.auth.Get(r.Context(), claim.UserID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	in := services.LogActivityInput{ActivityID: req.ActivityID, SavedLiters: req.LittersSaved}
	if req.CreatedAt != nil {
		in.OccurredOn = &req.CreatedAt.Time
	}
	if _, err := h.activities.LogActivity(r.Context(), claim.UserID, in); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, SuccessResponse{Success: true})
}

// Month returns the caller's raw records for the current month.
func (h *ActivityHandler) Month(w http.ResponseWriter, r *http.Request) {
	claim, err := claimFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	records, err := h.activities.MonthActivities(r.Context(), claim.UserID, h.activities.Today())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, MonthActivitiesResponse{Success: true, MonthActivities: records})
}

// Summary returns one total per day of the current month, converted to
// the caller's preferred unit.
func (h *ActivityHandler) Summary(w http.ResponseWriter, r *http.Request) {
	claim, err := claimFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.activities.MonthlySummary(r.Context(), claim.UserID, h.activities.Today())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	unit := claim.Units
	if unit == "" {
		unit = types.UnitsLiters
	}
	days := make([]SummaryDay, len(summary.Days))
	for i, day := range summary.Days {
		days[i] = SummaryDay{
			Date:        day.Date.Format(types.DateLayout),
			TotalLiters: day.TotalLiters,
			Amount:      unit.FromLiters(day.TotalLiters),
		}
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Success:     true,
		Unit:        unit,
		Days:        days,
		TotalLiters: summary.TotalLiters,
		Amount:      unit.FromLiters(summary.TotalLiters),
	})
}
