package services

import (
	"fmt"
	"time"

	"github.com/h2overflow/apiserver/types"
)

// MonthBounds returns the first and last calendar day of today's month.
func MonthBounds(today time.Time) (time.Time, time.Time) {
	y, m, _ := today.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// BuildMonthlySeries buckets records into one total per day of today's
// month. A record dated outside the month is reported as an integrity
// fault rather than dropped.
func BuildMonthlySeries(today time.Time, records []types.ActivityRecord) ([]types.DailyTotal, error) {
	start, end := MonthBounds(today)
	days := end.Day()

	series := make([]types.DailyTotal, days)
	for i := range series {
		series[i].Date = start.AddDate(0, 0, i)
	}

	for _, record := range records {
		date := types.CalendarDate(record.OccurredOn)
		idx := int(date.Sub(start).Hours() / 24)
		if idx < 0 || idx >= days {
			return nil, fmt.Errorf("%w: record %d dated %s outside %s..%s",
				ErrIntegrityFault,
				record.ID,
				date.Format(types.DateLayout),
				start.Format(types.DateLayout),
				end.Format(types.DateLayout),
			)
		}
		series[idx].TotalLiters += record.SavedLiters
	}

	return series, nil
}

// SumLiters totals a series.
func SumLiters(series []types.DailyTotal) float64 {
	var total float64
	for _, day := range series {
		total += day.TotalLiters
	}
	return total
}
