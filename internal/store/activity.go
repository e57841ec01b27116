package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/h2overflow/apiserver/types"
)

// ActivityRepository handles persistence for activity records.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends a record. Dates are sent as text so the session
// timezone cannot shift them.
func (r *ActivityRepository) Create(ctx context.Context, record types.ActivityRecord) (types.ActivityRecord, error) {
	record.CreatedAt = time.Now().UTC()
	record.OccurredOn = types.CalendarDate(record.OccurredOn)

	const query = `
		INSERT INTO activities (user_id, activity_id, occurred_on, liters_saved, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		record.UserID,
		record.ActivityID,
		record.OccurredOn.Format(types.DateLayout),
		record.SavedLiters,
		record.CreatedAt,
	).Scan(&record.ID); err != nil {
		return types.ActivityRecord{}, err
	}
	return record, nil
}

// ListForUserInRange returns the user's records dated within [start, end],
// oldest first and in insertion order within a day.
func (r *ActivityRepository) ListForUserInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]types.ActivityRecord, error) {
	const query = `
		SELECT id, user_id, activity_id, occurred_on, liters_saved, created_at
		FROM activities
		WHERE user_id = $1
		  AND occurred_on >= $2
		  AND occurred_on <= $3
		ORDER BY occurred_on ASC, id ASC`
	rows, err := r.db.QueryContext(
		ctx,
		query,
		userID,
		start.Format(types.DateLayout),
		end.Format(types.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]types.ActivityRecord, 0)
	for rows.Next() {
		var record types.ActivityRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ActivityID,
			&record.OccurredOn,
			&record.SavedLiters,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		record.OccurredOn = types.CalendarDate(record.OccurredOn)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
