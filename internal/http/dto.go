package http

import (
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// declarationDTO is the wire form of a declaration. Amount travels as a
// decimal string; is_recurrent is accepted from older clients and only
// read when mode is empty.
type declarationDTO struct {
	ID                int64  `json:"id,omitempty"`
	Year              int    `json:"year"`
	Month             int    `json:"month"`
	Type              string `json:"type"`
	SourceID          int64  `json:"source_id,omitempty"`
	GroupID           int64  `json:"group_id,omitempty"`
	SubgroupID        int64  `json:"subgroup_id,omitempty"`
	Amount            string `json:"amount"`
	Mode              string `json:"mode,omitempty"`
	IsRecurrent       *bool  `json:"is_recurrent,omitempty"`
	InstallmentsTotal int    `json:"installments_total,omitempty"`
	InstallmentIndex  int    `json:"installment_index,omitempty"`
}

func fromDeclaration(d core.Declaration) declarationDTO {
	return declarationDTO{
		ID:                d.ID,
		Year:              d.Year,
		Month:             d.Month,
		Type:              string(d.Type),
		SourceID:          d.Dimension.SourceID,
		GroupID:           d.Dimension.GroupID,
		SubgroupID:        d.Dimension.SubgroupID,
		Amount:            core.FormatAmount(d.Amount),
		Mode:              string(d.Mode),
		InstallmentsTotal: d.InstallmentsTotal,
		InstallmentIndex:  d.InstallmentIndex,
	}
}

func fromDeclarations(ds []core.Declaration) []declarationDTO {
	out := make([]declarationDTO, len(ds))
	for i, d := range ds {
		out[i] = fromDeclaration(d)
	}
	return out
}

// toDeclaration parses and validates the wire form.
func (dto declarationDTO) toDeclaration() (core.Declaration, error) {
	amount, err := core.ParseAmount(dto.Amount)
	if err != nil {
		return core.Declaration{}, err
	}

	mode := core.Mode(strings.ToLower(strings.TrimSpace(dto.Mode)))
	if mode != "" && !mode.Valid() {
		return core.Declaration{}, core.ErrInvalidMode
	}
	mode = core.NormalizeMode(string(mode), dto.IsRecurrent != nil && *dto.IsRecurrent)

	d := core.Declaration{
		Year:  dto.Year,
		Month: dto.Month,
		Type:  core.BudgetType(strings.ToLower(strings.TrimSpace(dto.Type))),
		Dimension: core.Dimension{
			SourceID:   dto.SourceID,
			GroupID:    dto.GroupID,
			SubgroupID: dto.SubgroupID,
		},
		Amount:            amount,
		Mode:              mode,
		InstallmentsTotal: dto.InstallmentsTotal,
		InstallmentIndex:  dto.InstallmentIndex,
	}
	return d, d.Validate()
}

type overviewDTO struct {
	Year         int              `json:"year"`
	Month        int              `json:"month"`
	IncomeTotal  string           `json:"income_total"`
	ExpenseTotal string           `json:"expense_total"`
	Balance      string           `json:"balance"`
	Declarations []declarationDTO `json:"declarations"`
}

func fromOverview(o core.MonthOverview) overviewDTO {
	return overviewDTO{
		Year:         o.Year,
		Month:        o.Month,
		IncomeTotal:  core.FormatAmount(o.IncomeTotal),
		ExpenseTotal: core.FormatAmount(o.ExpenseTotal),
		Balance:      core.FormatAmount(o.Balance),
		Declarations: fromDeclarations(o.Declarations),
	}
}

type syncDTO struct {
	Success     bool   `json:"success"`
	CopiedCount int    `json:"copied_count"`
	Error       string `json:"error,omitempty"`
}

func fromSync(r services.SyncResult) syncDTO {
	out := syncDTO{Success: r.Success, CopiedCount: r.CopiedCount}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

type splitDTO struct {
	PastCreated   int `json:"past_created"`
	PastConverted int `json:"past_converted"`
	FutureDeleted int `json:"future_deleted"`
}

func fromSplit(r services.SplitResult) splitDTO {
	return splitDTO{PastCreated: r.PastCreated, PastConverted: r.PastConverted, FutureDeleted: r.FutureDeleted}
}

type createdDTO struct {
	Declaration declarationDTO `json:"declaration"`
	Propagated  int            `json:"propagated"`
}

type editedDTO struct {
	Declaration declarationDTO `json:"declaration"`
	Split       splitDTO       `json:"split"`
	Propagated  int            `json:"propagated"`
}

type namedDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type groupDTO struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Subgroups []namedDTO `json:"subgroups"`
}

type taxonomyDTO struct {
	Sources []namedDTO `json:"sources"`
	Groups  []groupDTO `json:"groups"`
}

func fromTaxonomy(sources []core.Source, groups []core.Group) taxonomyDTO {
	out := taxonomyDTO{
		Sources: make([]namedDTO, len(sources)),
		Groups:  make([]groupDTO, len(groups)),
	}
	for i, s := range sources {
		out.Sources[i] = namedDTO{ID: s.ID, Name: s.Name}
	}
	for i, g := range groups {
		subs := make([]namedDTO, len(g.Subgroups))
		for j, sg := range g.Subgroups {
			subs[j] = namedDTO{ID: sg.ID, Name: sg.Name}
		}
		out.Groups[i] = groupDTO{ID: g.ID, Name: g.Name, Subgroups: subs}
	}
	return out
}

type errorDTO struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
