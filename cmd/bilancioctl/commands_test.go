package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/storage"

	"github.com/shopspring/decimal"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ctl.db")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", dbPath)
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("LOG_LEVEL", "error")
	return dbPath
}

func TestSeedIsIdempotent(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "seed")
	if err != nil || !strings.Contains(out, "seeded") {
		t.Fatalf("first seed = %q, %v", out, err)
	}
	out, err = run(t, "seed")
	if err != nil || !strings.Contains(out, "already present") {
		t.Fatalf("second seed = %q, %v", out, err)
	}
}

func TestPropagateSyncAndList(t *testing.T) {
	dbPath := setupEnv(t)
	if _, err := run(t, "seed"); err != nil {
		t.Fatal(err)
	}

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	id, err := repo.Add(context.Background(), core.Declaration{
		Year: 2024, Month: 11,
		Type:              core.Expense,
		Dimension:         core.Dimension{GroupID: 2, SubgroupID: 7},
		Amount:            decimal.NewFromInt(250),
		Mode:              core.Installment,
		InstallmentsTotal: 4,
		InstallmentIndex:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()

	out, err := run(t, "propagate", "--id", itoa(id))
	if err != nil || !strings.Contains(out, "created 3") {
		t.Fatalf("propagate = %q, %v", out, err)
	}

	out, err = run(t, "sync", "--year", "2025", "--month", "1")
	if err != nil || !strings.Contains(out, "copied 0") {
		t.Fatalf("sync = %q, %v", out, err)
	}

	out, err = run(t, "list", "--year", "2025", "--month", "2")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{"Transport", "Car loan", "4/4", "250.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing month flag", []string{"sync", "--year", "2024"}},
		{"invalid month", []string{"list", "--year", "2024", "--month", "13"}},
		{"unknown declaration", []string{"propagate", "--id", "99"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
