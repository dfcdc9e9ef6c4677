package services

import (
	"errors"
	"testing"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

func TestFindCard(t *testing.T) {
	cards := []db.Card{
		{ID: "c-1", Name: "Documentos", Type: db.CardTypeDocuments},
		{ID: "c-2", Name: "Relatórios", Type: db.CardTypeReports},
	}

	if idx := findCard(cards, "c-2"); idx != 1 {
		t.Errorf("findCard(c-2) = %d, want 1", idx)
	}
	// Lookup is by ID, never by display name
	if idx := findCard(cards, "Documentos"); idx != -1 {
		t.Errorf("findCard by name = %d, want -1", idx)
	}
	if idx := findCard(cards, "missing"); idx != -1 {
		t.Errorf("findCard(missing) = %d, want -1", idx)
	}
}

func TestValidateCardInput(t *testing.T) {
	tests := []struct {
		name    string
		input   CardInput
		wantErr bool
	}{
		{"link card", CardInput{Name: "Portal", Type: db.CardTypeLink}, false},
		{"documents card", CardInput{Name: "Docs", Type: db.CardTypeDocuments}, false},
		{"forms card with fields", CardInput{Name: "Inspeção", Type: db.CardTypeForms,
			FormFields: []db.FormField{{Key: "local", Kind: db.FieldKindText}}}, false},
		{"forms card without fields", CardInput{Name: "Inspeção", Type: db.CardTypeForms}, true},
		{"unknown type", CardInput{Name: "X", Type: "widgets"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCardInput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCardInput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, authz.ErrInvalidInput) {
				t.Errorf("validateCardInput() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

// Storage paths key on IDs, so renaming a project or card never moves objects
func TestCardPrefixUsesIDs(t *testing.T) {
	got := cardPrefix("p-1", "c-1")
	want := "projects/p-1/cards/c-1/"
	if got != want {
		t.Errorf("cardPrefix() = %q, want %q", got, want)
	}
	if projectPrefix("p-1") != "projects/p-1/" {
		t.Errorf("projectPrefix() = %q", projectPrefix("p-1"))
	}
}
