package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"

	"github.com/shopspring/decimal"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Budget", 2025, "2025 Budget"},
		{"  Budget  ", 2024, "2024 Budget"},
		{"", 2023, ""},
		{"Home Budget", 2022, "2022 Home Budget"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
		{"1800 Too Old", 2024, "2024 1800 Too Old"},
	}

	for _, tt := range tests {
		if got := yearPrefixedName(tt.baseName, tt.year); got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestNew_MissingSettings(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"no spreadsheet", Options{}, "missing GOOGLE_SPREADSHEET_ID"},
		{"no credentials", Options{SpreadsheetID: "id"}, "missing service account credentials"},
		{"unreadable file", Options{SpreadsheetID: "id", CredentialsFile: "/does/not/exist.json"}, "read service account file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.opts, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadCredentialsPrefersInline(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := loadCredentials(Options{CredentialsJSON: `{"from":"env"}`, CredentialsFile: file})
	if err != nil || string(got) != `{"from":"env"}` {
		t.Errorf("loadCredentials = %s, %v", got, err)
	}
	got, err = loadCredentials(Options{CredentialsFile: file})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Errorf("loadCredentials(file) = %s, %v", got, err)
	}
}

func TestExportMonthWithoutService(t *testing.T) {
	c := &Client{sheetBase: "Budget"}
	if _, err := c.ExportMonth(context.Background(), core.MonthOverview{Year: 2024, Month: 1}); err == nil {
		t.Error("expected an error without a sheets service")
	}
}

func TestBuildRows(t *testing.T) {
	o := core.Summarize(core.NewYearMonth(2024, 11), []core.Declaration{
		{Year: 2024, Month: 11, Type: core.Income, Dimension: core.Dimension{SourceID: 1}, Amount: decimal.NewFromInt(3000), Mode: core.Recurring},
		{Year: 2024, Month: 11, Type: core.Expense, Dimension: core.Dimension{GroupID: 2, SubgroupID: 3}, Amount: decimal.RequireFromString("500.5"), Mode: core.Installment, InstallmentsTotal: 4, InstallmentIndex: 1},
		{Year: 2024, Month: 11, Type: core.Expense, Dimension: core.Dimension{GroupID: 9}, Amount: decimal.NewFromInt(20), Mode: core.Unique},
	})
	labels := ports.Labels{
		Sources:   map[int64]string{1: "Salary"},
		Groups:    map[int64]string{2: "Transport"},
		Subgroups: map[int64]string{3: "Car loan"},
	}

	rows := buildRows(o, labels)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	want := [][]any{
		{"2024-11", "income", "Salary", "", "recurring", "", "3000.00"},
		{"2024-11", "expense", "Transport", "Car loan", "installment", "1/4", "500.50"},
		{"2024-11", "expense", "#9", "", "unique", "", "20.00"},
		{"2024-11", "balance", "", "", "", "", "2479.50"},
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d = %v, want %v", i, j, rows[i][j], want[i][j])
			}
		}
	}
}

func TestMergeMonth(t *testing.T) {
	existing := [][]any{
		header,
		{"2024-03", "expense", "Rent", "", "recurring", "", "900.00"},
		{"2024-01", "expense", "Rent", "", "recurring", "", "900.00"},
		{"2024-02", "expense", "Old", "", "unique", "", "1.00"},
		{},
	}
	fresh := [][]any{{"2024-02", "expense", "New", "", "unique", "", "2.00"}}

	got := mergeMonth(existing, "2024-02", fresh)
	if len(got) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d: %v", len(got), got)
	}
	if got[0][0] != "Month" {
		t.Errorf("first row should be the header, got %v", got[0])
	}
	order := []string{"2024-01", "2024-02", "2024-03"}
	for i, key := range order {
		if cell(got[i+1][0]) != key {
			t.Errorf("row %d month = %v, want %s", i+1, got[i+1][0], key)
		}
	}
	if got[2][2] != "New" {
		t.Errorf("month rows were not replaced: %v", got[2])
	}

	empty := mergeMonth(nil, "2025-01", nil)
	if len(empty) != 1 {
		t.Errorf("expected only the header, got %v", empty)
	}
}
