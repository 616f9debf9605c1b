package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
)

// scanBusyIntervals reads (start_unix, end_unix) rows and closes rows.
func scanBusyIntervals(rows *sql.Rows) ([]models.BusyInterval, error) {
	defer rows.Close()

	var busy []models.BusyInterval
	for rows.Next() {
		var start, end int64
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan busy interval row: %w", err)
		}
		busy = append(busy, models.BusyInterval{
			Start: time.Unix(start, 0).UTC(),
			End:   time.Unix(end, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate busy interval rows: %w", err)
	}
	return busy, nil
}
