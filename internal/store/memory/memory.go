package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// Ensure interface conformance
var (
	_ store.Store    = (*Store)(nil)
	_ store.Taxonomy = (*Store)(nil)
)

type slot struct {
	ym  core.YearMonth
	key core.SeriesKey
}

// Store keeps declarations in memory and enforces one declaration per
// (year, month, series key) like the SQL unique index does.
type Store struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]core.Declaration
	bySlot map[slot]int64

	nextTaxID int64
	sources   []core.Source
	groups    []core.Group
}

func New() *Store {
	return &Store{
		byID:   make(map[int64]core.Declaration),
		bySlot: make(map[slot]int64),
	}
}

func slotOf(d core.Declaration) slot {
	return slot{ym: d.YearMonth(), key: d.Key()}
}

// GetAll returns every declaration ordered by month then ID.
func (s *Store) GetAll(_ context.Context) ([]core.Declaration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Declaration, 0, len(s.byID))
	for _, d := range s.byID {
		out = append(out, d)
	}
	sortDeclarations(out)
	return out, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (core.Declaration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return core.Declaration{}, store.ErrNotFound
	}
	return d, nil
}

func (s *Store) GetByKey(_ context.Context, ym core.YearMonth, key core.SeriesKey) (core.Declaration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySlot[slot{ym: ym, key: key}]
	if !ok {
		return core.Declaration{}, store.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *Store) ListMonth(_ context.Context, ym core.YearMonth) ([]core.Declaration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Declaration
	for _, d := range s.byID {
		if d.YearMonth() == ym {
			out = append(out, d)
		}
	}
	sortDeclarations(out)
	return out, nil
}

// Add stores d under a fresh ID. The dimension is canonicalized to its key.
func (s *Store) Add(_ context.Context, d core.Declaration) (int64, error) {
	d.Dimension = d.Key().Dimension()
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := slotOf(d)
	if _, exists := s.bySlot[sl]; exists {
		return 0, fmt.Errorf("add %s at %s: %w", sl.key, sl.ym, store.ErrDuplicateKey)
	}
	s.nextID++
	d.ID = s.nextID
	s.byID[d.ID] = d
	s.bySlot[sl] = d.ID
	return d.ID, nil
}

func (s *Store) Update(_ context.Context, id int64, p store.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	s.byID[id] = p.Apply(d)
	return nil
}

// BulkDelete removes the given IDs. Unknown IDs are ignored.
func (s *Store) BulkDelete(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		d, ok := s.byID[id]
		if !ok {
			continue
		}
		delete(s.bySlot, slotOf(d))
		delete(s.byID, id)
	}
	return nil
}

// Replace swaps the whole declaration set. Nothing changes if the input
// holds two declarations for the same slot.
func (s *Store) Replace(_ context.Context, decls []core.Declaration) error {
	byID := make(map[int64]core.Declaration, len(decls))
	bySlot := make(map[slot]int64, len(decls))
	var next int64
	for _, d := range decls {
		d.Dimension = d.Key().Dimension()
		sl := slotOf(d)
		if _, exists := bySlot[sl]; exists {
			return fmt.Errorf("replace %s at %s: %w", sl.key, sl.ym, store.ErrDuplicateKey)
		}
		next++
		d.ID = next
		byID[d.ID] = d
		bySlot[sl] = d.ID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID, s.bySlot, s.nextID = byID, bySlot, next
	return nil
}

func (s *Store) ListSources(_ context.Context) ([]core.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Source(nil), s.sources...), nil
}

func (s *Store) ListGroups(_ context.Context) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Group, len(s.groups))
	for i, g := range s.groups {
		g.Subgroups = append([]core.Subgroup(nil), g.Subgroups...)
		out[i] = g
	}
	return out, nil
}

func (s *Store) AddSource(_ context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, core.ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTaxID++
	s.sources = append(s.sources, core.Source{ID: s.nextTaxID, Name: name})
	return s.nextTaxID, nil
}

func (s *Store) AddGroup(_ context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, core.ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTaxID++
	s.groups = append(s.groups, core.Group{ID: s.nextTaxID, Name: name})
	return s.nextTaxID, nil
}

func (s *Store) AddSubgroup(_ context.Context, groupID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, core.ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.groups {
		if s.groups[i].ID == groupID {
			s.nextTaxID++
			s.groups[i].Subgroups = append(s.groups[i].Subgroups, core.Subgroup{ID: s.nextTaxID, GroupID: groupID, Name: name})
			return s.nextTaxID, nil
		}
	}
	return 0, fmt.Errorf("group %d: %w", groupID, store.ErrNotFound)
}

func (s *Store) HasTaxonomy(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources) > 0 || len(s.groups) > 0, nil
}

func sortDeclarations(ds []core.Declaration) {
	sort.Slice(ds, func(i, j int) bool {
		li, lj := ds[i].YearMonth().Linear(), ds[j].YearMonth().Linear()
		if li != lj {
			return li < lj
		}
		return ds[i].ID < ds[j].ID
	})
}
