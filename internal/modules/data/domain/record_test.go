package domain

import (
	"errors"
	"testing"
)

func TestTrialRecordValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record TrialRecord
		want   error
	}{
		{name: "missing run", record: TrialRecord{}, want: ErrRunIDRequired},
		{name: "ragged", record: TrialRecord{RunID: "r", RT: []float64{1}, Key: []string{}, StimInTrial: []string{}}, want: ErrRaggedRecord},
		{name: "empty trial", record: TrialRecord{RunID: "r"}, want: nil},
		{name: "one response", record: TrialRecord{RunID: "r", RT: []float64{1}, Key: []string{"a"}, StimInTrial: []string{"x.mp4"}}, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.record.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseExportFormat(t *testing.T) {
	t.Parallel()

	if f, err := ParseExportFormat(""); err != nil || f != FormatCSV {
		t.Fatalf("expected csv default, got %v %v", f, err)
	}
	if f, err := ParseExportFormat("JSON"); err != nil || f != FormatJSON {
		t.Fatalf("expected json, got %v %v", f, err)
	}
	if _, err := ParseExportFormat("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}
