package types

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = time.DateOnly

// ActivityDefinition is a catalog entry describing a water-saving action.
type ActivityDefinition struct {
	// ID is the stable identifier clients reference when logging.
	ID int `json:"activity_id"`

	// Slug is a short machine name for the activity.
	Slug string `json:"slug"`

	// Name is the human-readable description.
	Name string `json:"name"`

	// SavedWater is the liters saved each time the activity is performed.
	SavedWater float64 `json:"saved_water"`
}

// ActivityRecord is a single logged occurrence of a catalog activity.
// Records are append-only.
type ActivityRecord struct {
	// ID is assigned by the store and increases with insertion order.
	ID int64 `json:"id" db:"id"`

	// UserID identifies the owning user.
	UserID uuid.UUID `json:"user_id" db:"user_id"`

	// ActivityID references ActivityDefinition.ID.
	ActivityID int `json:"activity" db:"activity_id"`

	// OccurredOn is the calendar date of the activity, at UTC midnight.
	OccurredOn time.Time `json:"created_at" db:"occurred_on"`

	// SavedLiters is the catalog amount captured at logging time.
	SavedLiters float64 `json:"litters_saved" db:"liters_saved"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"logged_at" db:"created_at"`
}

// DailyTotal is one day's bucket in a monthly series.
type DailyTotal struct {
	Date        time.Time `json:"-"`
	TotalLiters float64   `json:"total_liters"`
}

// CalendarDate normalises t to midnight UTC of the date it shows in its own location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
