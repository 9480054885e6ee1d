// Package sheets defines outbound spreadsheet ports.
package sheets

import (
	"context"
	"strconv"

	"bilancio/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthExporter writes a month overview to an external sheet, replacing
	// whatever was exported for that month before.
	MonthExporter interface {
		ExportMonth(ctx context.Context, o core.MonthOverview) (ref string, err error)
	}

	// Labeler resolves dimension ids to display names.
	Labeler interface {
		ListSources(ctx context.Context) ([]core.Source, error)
		ListGroups(ctx context.Context) ([]core.Group, error)
	}
)

// Labels maps taxonomy ids to names.
type Labels struct {
	Sources   map[int64]string
	Groups    map[int64]string
	Subgroups map[int64]string
}

// LoadLabels reads the taxonomy from l. A nil Labeler yields empty labels.
func LoadLabels(ctx context.Context, l Labeler) (Labels, error) {
	out := Labels{
		Sources:   map[int64]string{},
		Groups:    map[int64]string{},
		Subgroups: map[int64]string{},
	}
	if l == nil {
		return out, nil
	}
	sources, err := l.ListSources(ctx)
	if err != nil {
		return out, err
	}
	for _, s := range sources {
		out.Sources[s.ID] = s.Name
	}
	groups, err := l.ListGroups(ctx)
	if err != nil {
		return out, err
	}
	for _, g := range groups {
		out.Groups[g.ID] = g.Name
		for _, sub := range g.Subgroups {
			out.Subgroups[sub.ID] = sub.Name
		}
	}
	return out, nil
}

// Category returns the category and subcategory labels of d, falling back
// to "#id" for unknown ids.
func (l Labels) Category(d core.Declaration) (string, string) {
	name := func(m map[int64]string, id int64) string {
		if id == 0 {
			return ""
		}
		if n, ok := m[id]; ok {
			return n
		}
		return "#" + strconv.FormatInt(id, 10)
	}
	if d.Type == core.Income {
		return name(l.Sources, d.Dimension.SourceID), ""
	}
	return name(l.Groups, d.Dimension.GroupID), name(l.Subgroups, d.Dimension.SubgroupID)
}
