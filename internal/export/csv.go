package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/dayloop/dayloop/internal/store"
)

// ScheduleToCSV writes the events as a spreadsheet-friendly CSV.
func ScheduleToCSV(events []store.ScheduleEvent, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Day", "Start", "End", "Type", "Title", "Duration", "Notes"}); err != nil {
		return err
	}

	for _, e := range events {
		row := []string{
			e.ID,
			e.Day,
			e.StartTime,
			e.EndTime,
			e.Type,
			e.Title,
			formatMinutes(e.Duration),
			e.Notes,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatMinutes(mins int) string {
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}
