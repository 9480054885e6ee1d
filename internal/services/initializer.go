package services

import (
	"context"
	"fmt"
	"log/slog"

	applog "bilancio/internal/log"
	"bilancio/internal/store"
)

// Initializer seeds a store once. Check reports whether the store already
// holds data; Seed runs only when it does not.
type Initializer struct {
	Check func(ctx context.Context) (bool, error)
	Seed  func(ctx context.Context) error
}

// Run seeds the store if Check reports it empty and says whether it did.
func (i Initializer) Run(ctx context.Context) (bool, error) {
	if i.Check == nil || i.Seed == nil {
		return false, fmt.Errorf("initializer is missing check or seed")
	}
	present, err := i.Check(ctx)
	if err != nil {
		return false, fmt.Errorf("check existing data: %w", err)
	}
	if present {
		slog.DebugContext(ctx, "Store already initialized", applog.FieldComponent, applog.ComponentStorage)
		return false, nil
	}
	if err := i.Seed(ctx); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	slog.InfoContext(ctx, "Store seeded",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldOperation, applog.OpSeed)
	return true, nil
}

// DefaultGroup is a seeded expense group with its subgroups.
type DefaultGroup struct {
	Name      string
	Subgroups []string
}

var (
	DefaultSources = []string{"Salary", "Freelance", "Rental income", "Other income"}
	DefaultGroups  = []DefaultGroup{
		{Name: "Housing", Subgroups: []string{"Rent", "Mortgage", "Utilities", "Maintenance"}},
		{Name: "Transport", Subgroups: []string{"Fuel", "Public transport", "Car loan", "Insurance"}},
		{Name: "Food", Subgroups: []string{"Groceries", "Dining out"}},
		{Name: "Health", Subgroups: []string{"Medical", "Pharmacy"}},
		{Name: "Leisure", Subgroups: []string{"Subscriptions", "Travel", "Hobbies"}},
		{Name: "Savings"},
		{Name: "Other"},
	}
)

// NewTaxonomyInitializer seeds the default sources and groups into t.
func NewTaxonomyInitializer(t store.Taxonomy) Initializer {
	return Initializer{
		Check: t.HasTaxonomy,
		Seed: func(ctx context.Context) error {
			return SeedTaxonomy(ctx, t, DefaultSources, DefaultGroups)
		},
	}
}

// SeedTaxonomy adds sources and groups to t.
func SeedTaxonomy(ctx context.Context, t store.Taxonomy, sources []string, groups []DefaultGroup) error {
	for _, name := range sources {
		if _, err := t.AddSource(ctx, name); err != nil {
			return fmt.Errorf("add source %q: %w", name, err)
		}
	}
	for _, g := range groups {
		id, err := t.AddGroup(ctx, g.Name)
		if err != nil {
			return fmt.Errorf("add group %q: %w", g.Name, err)
		}
		for _, sub := range g.Subgroups {
			if _, err := t.AddSubgroup(ctx, id, sub); err != nil {
				return fmt.Errorf("add subgroup %q to %q: %w", sub, g.Name, err)
			}
		}
	}
	return nil
}
