package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"evseg/internal/modules/data/domain"
)

var csvHeader = []string{
	"run_id", "trial_index", "participant_id", "mode", "aborted",
	"response_index", "rt", "key", "stimInTrial", "recorded_at",
}

// WriteCSV writes one row per response. Trials without a response still get a
// row with empty response columns. It returns the number of data rows.
func WriteCSV(w io.Writer, records []domain.TrialRecord) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	rows := 0
	for _, r := range records {
		base := []string{
			r.RunID,
			strconv.Itoa(r.Index),
			strconv.Itoa(r.ParticipantID),
			string(r.Mode),
			strconv.FormatBool(r.Aborted),
		}
		recorded := r.RecordedAt.UTC().Format(time.RFC3339Nano)
		if r.Responses() == 0 {
			if err := cw.Write(append(base, "", "", "", "", recorded)); err != nil {
				return rows, fmt.Errorf("write csv row: %w", err)
			}
			rows++
			continue
		}
		for i := range r.RT {
			row := append(append([]string(nil), base...),
				strconv.Itoa(i),
				strconv.FormatFloat(r.RT[i], 'f', -1, 64),
				r.Key[i],
				r.StimInTrial[i],
				recorded,
			)
			if err := cw.Write(row); err != nil {
				return rows, fmt.Errorf("write csv row: %w", err)
			}
			rows++
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}

// WriteJSON writes the records as an indented JSON array.
func WriteJSON(w io.Writer, records []domain.TrialRecord) (int, error) {
	if records == nil {
		records = []domain.TrialRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("encode json: %w", err)
	}
	return len(records), nil
}
