package store

import "bilancio/internal/core"

// Freeze returns the patch that takes a declaration out of its series.
func Freeze() Patch {
	m := core.Unique
	return Patch{Mode: &m}
}

// Apply returns d with p applied.
func (p Patch) Apply(d core.Declaration) core.Declaration {
	if p.Amount != nil {
		d.Amount = *p.Amount
	}
	if p.Mode != nil {
		d.Mode = *p.Mode
		if d.Mode != core.Installment {
			d.InstallmentsTotal = 0
			d.InstallmentIndex = 0
		}
	}
	if p.InstallmentsTotal != nil {
		d.InstallmentsTotal = *p.InstallmentsTotal
	}
	if p.InstallmentIndex != nil {
		d.InstallmentIndex = *p.InstallmentIndex
	}
	return d
}
