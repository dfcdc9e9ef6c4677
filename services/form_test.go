package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

func inspectionFields() []db.FormField {
	return []db.FormField{
		{Key: "local", Label: "Local", Kind: db.FieldKindText, Required: true},
		{Key: "data", Label: "Data", Kind: db.FieldKindDate, Required: true},
		{Key: "status", Label: "Status", Kind: db.FieldKindSelect, Options: []string{"ok", "pendente"}},
		{Key: "obs", Label: "Observações", Kind: db.FieldKindText},
	}
}

func TestValidateValues(t *testing.T) {
	fields := inspectionFields()

	tests := []struct {
		name    string
		values  map[string]string
		wantErr bool
	}{
		{
			name:   "complete submission",
			values: map[string]string{"local": "Unidade 3", "data": "2026-08-01", "status": "ok", "obs": "tudo certo"},
		},
		{
			name:   "optional fields omitted",
			values: map[string]string{"local": "Unidade 3", "data": "2026-08-01"},
		},
		{
			name:    "missing required field",
			values:  map[string]string{"local": "Unidade 3"},
			wantErr: true,
		},
		{
			name:    "empty required field",
			values:  map[string]string{"local": "", "data": "2026-08-01"},
			wantErr: true,
		},
		{
			name:    "unknown field",
			values:  map[string]string{"local": "Unidade 3", "data": "2026-08-01", "extra": "x"},
			wantErr: true,
		},
		{
			name:    "select value outside options",
			values:  map[string]string{"local": "Unidade 3", "data": "2026-08-01", "status": "talvez"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateValues(fields, tt.values)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateValues() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, authz.ErrInvalidInput) {
				t.Errorf("validateValues() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestWriteResponsesCSV(t *testing.T) {
	fields := inspectionFields()
	submitted := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	responses := []db.FormResponse{
		{
			SubmittedBy: "user-1",
			CreatedAt:   submitted,
			Values:      map[string]string{"local": "Unidade 3", "data": "2026-08-01", "status": "ok", "obs": "tudo certo"},
		},
		{
			SubmittedBy: "user-2",
			CreatedAt:   submitted,
			// Value with comma and quote must come out quoted, not split
			Values: map[string]string{"local": `Doca "B", setor 2`, "data": "2026-08-02"},
		},
	}

	var buf bytes.Buffer
	if err := writeResponsesCSV(&buf, fields, responses); err != nil {
		t.Fatalf("writeResponsesCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 records:\n%s", len(lines), buf.String())
	}

	if lines[0] != "submitted_by,submitted_at,local,data,status,obs" {
		t.Errorf("header = %q, columns must follow field order", lines[0])
	}
	if !strings.Contains(lines[2], `"Doca ""B"", setor 2"`) {
		t.Errorf("record = %q, special characters not quoted", lines[2])
	}
	// Missing optional values become empty cells, keeping column alignment
	if !strings.HasSuffix(lines[2], ",,") {
		t.Errorf("record = %q, want trailing empty cells for omitted fields", lines[2])
	}
}

func TestWriteResponsesCSV_NoResponses(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResponsesCSV(&buf, inspectionFields(), nil); err != nil {
		t.Fatalf("writeResponsesCSV() error = %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("empty export should contain only the header, got %q", buf.String())
	}
}
