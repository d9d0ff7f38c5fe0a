// Normalization from wire shapes to the canonical model. The admin and
// staff imprest endpoints name the same concepts differently; these
// mappings are the single place that knowledge lives. Call sites never
// dig optional fields out of raw payloads.
package gateway

import (
	"encoding/json"

	"gibrocash/internal/core"
)

// defaultImprestSource fills the admin listing's occasionally-omitted
// source field.
const defaultImprestSource = core.ImprestTypeCompany

// roleFallback is displayed when a user row carries no designation join.
const roleFallback = "N/A"

func normalizeAdminImprest(r adminImprestRow) core.ImprestAccount {
	source := r.Source
	if source == "" {
		source = defaultImprestSource
	}
	var assignees []core.Assignee
	for _, a := range r.AssignedTo {
		assignees = append(assignees, core.Assignee{ID: string(a.ID), Name: a.Name})
	}
	return core.ImprestAccount{
		ID:          string(r.ID),
		DisplayName: r.ImprestName,
		Allocated:   core.Money{Cents: int64(r.Allocated)},
		Used:        core.Money{Cents: int64(r.UsedAmount)},
		Source:      source,
		CreatedAt:   r.CreatedAt.Time,
		Assignees:   assignees,
	}
}

func normalizeStaffImprest(r staffImprestRow) core.ImprestAccount {
	return core.ImprestAccount{
		ID:          string(r.ID),
		DisplayName: r.Name,
		Allocated:   core.Money{Cents: int64(r.Amount)},
		Used:        core.Money{Cents: int64(r.TotalTransactionPrice)},
		Source:      r.Source,
		CreatedAt:   r.CreatedAt.Time,
		Closed:      bool(r.ClosedStatusFlag),
	}
}

// normalizeTransactionRows decodes the raw transactions.rows value. An
// absent, null, or non-sequence value yields an empty list, never an
// error.
func normalizeTransactionRows(imprestID string, raw json.RawMessage) []core.Transaction {
	if isNull(raw) {
		return nil
	}
	var rows []transactionRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	txns := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		txns = append(txns, core.Transaction{
			ID:             string(r.ID),
			ImprestID:      imprestID,
			Item:           r.Item,
			Quantity:       int64(r.Quantity),
			UnitPrice:      core.Money{Cents: int64(r.UnitPrice)},
			VAT:            core.Money{Cents: int64(r.VATCharged)},
			Total:          core.Money{Cents: int64(r.Price)},
			CreatedAt:      r.CreatedAt.Time,
			ReceiptImageID: string(r.ImagesID),
		})
	}
	return txns
}

func normalizeProposal(r proposalRow) core.Proposal {
	var items []core.ProposalItem
	for _, it := range r.Items {
		items = append(items, core.ProposalItem{
			ID:       string(it.ID),
			Name:     it.Item,
			Quantity: int64(it.Quantity),
			Total:    core.Money{Cents: int64(it.TotalPrice)},
		})
	}
	return core.Proposal{
		ID:        string(r.ID),
		Title:     r.Name,
		Total:     core.Money{Cents: int64(r.Total)},
		Status:    core.NormalizeStatus(r.Status),
		CreatedAt: r.CreatedAt.Time,
		Items:     items,
	}
}

func normalizeUser(r userRow) core.User {
	role := roleFallback
	if r.DesignationTbl != nil && r.DesignationTbl.Name != "" {
		role = r.DesignationTbl.Name
	}
	return core.User{
		ID:        string(r.ID),
		Name:      r.Name,
		Phone:     r.Phone,
		Role:      role,
		CreatedAt: r.CreatedAt.Time,
	}
}
