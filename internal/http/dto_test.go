package http

import (
	"errors"
	"net/http"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

func TestToDeclaration(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name     string
		dto      declarationDTO
		wantMode core.Mode
		wantErr  error
	}{
		{"explicit mode wins over flag", declarationDTO{Year: 2024, Month: 1, Type: "income", SourceID: 1, Amount: "10", Mode: "unique", IsRecurrent: &yes}, core.Unique, nil},
		{"legacy flag", declarationDTO{Year: 2024, Month: 1, Type: "Income", SourceID: 1, Amount: "10", IsRecurrent: &yes}, core.Recurring, nil},
		{"legacy flag off", declarationDTO{Year: 2024, Month: 1, Type: "income", SourceID: 1, Amount: "10", IsRecurrent: &no}, core.Unique, nil},
		{"installment", declarationDTO{Year: 2024, Month: 1, Type: "expense", GroupID: 1, Amount: "10", Mode: "INSTALLMENT", InstallmentsTotal: 3, InstallmentIndex: 1}, core.Installment, nil},
		{"unknown mode", declarationDTO{Year: 2024, Month: 1, Type: "income", SourceID: 1, Amount: "10", Mode: "weekly"}, "", core.ErrInvalidMode},
		{"empty amount", declarationDTO{Year: 2024, Month: 1, Type: "income", SourceID: 1}, "", core.ErrInvalidAmount},
		{"bad type", declarationDTO{Year: 2024, Month: 1, Type: "transfer", SourceID: 1, Amount: "1"}, "", core.ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.dto.toDeclaration()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && d.Mode != tt.wantMode {
				t.Errorf("mode = %s, want %s", d.Mode, tt.wantMode)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("x"), http.StatusBadRequest},
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrDuplicateKey, http.StatusConflict},
		{rowError(3, core.ErrInvalidMonth), http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
