package backend

import (
	"context"
	"path/filepath"
	"testing"

	"bilancio/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{"sqlite", "sqlite", false},
		{"memory", "memory", false},
		{"sheets is no longer a store", "sheets", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromAppConfig(&config.Config{DataBackend: tt.backend, SQLiteDBPath: "x.db"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.Type.String() != tt.backend {
				t.Errorf("Type = %s, want %s", cfg.Type, tt.backend)
			}
		})
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{Type: SQLiteBackend}).Validate(); err == nil {
		t.Error("sqlite without a path should fail")
	}
	if err := (Config{Type: MemoryBackend}).Validate(); err != nil {
		t.Errorf("memory should validate: %v", err)
	}
}

func TestCreateBackendSeeds(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Type: MemoryBackend, SeedDefaults: true}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "sub", "b.db"), SeedDefaults: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewFactory(nil).CreateBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("CreateBackend failed: %v", err)
			}
			defer res.Close()

			has, err := res.Backend.HasTaxonomy(ctx)
			if err != nil || !has {
				t.Errorf("HasTaxonomy() = %v, %v", has, err)
			}
			groups, _ := res.Backend.ListGroups(ctx)
			if len(groups) == 0 || groups[0].Name != "Housing" {
				t.Errorf("unexpected groups %+v", groups)
			}
		})
	}
}

func TestOptionalIntegrationsDisabled(t *testing.T) {
	cfg := &config.Config{}
	logger := slogDiscard()

	pub, err := NewPublisher(cfg, logger)
	if err != nil || pub != nil {
		t.Errorf("NewPublisher() = %v, %v", pub, err)
	}
	exp, err := NewExporter(context.Background(), cfg, nil, logger)
	if err != nil || exp != nil {
		t.Errorf("NewExporter() = %v, %v", exp, err)
	}
}
