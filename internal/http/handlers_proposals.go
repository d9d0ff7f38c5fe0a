package http

import (
	"context"
	"net/http"
	"time"

	"gibrocash/internal/core"
	"gibrocash/internal/gateway"
	"gibrocash/internal/log"
)

type proposalView struct {
	ID        string
	Title     string
	Total     string
	Status    string
	Pending   bool
	CreatedAt string
	ItemCount int
	Items     []proposalItemView
}

type proposalItemView struct {
	Name      string
	Quantity  int64
	Total     string
	UnitPrice string
}

func proposalToView(p core.Proposal) proposalView {
	v := proposalView{
		ID:        p.ID,
		Title:     p.Title,
		Total:     formatKES(p.Total.Cents),
		Status:    string(p.Status),
		Pending:   p.Status == core.ProposalPending,
		CreatedAt: formatDate(p.CreatedAt),
		ItemCount: len(p.Items),
	}
	for _, it := range p.Items {
		v.Items = append(v.Items, proposalItemView{
			Name:      it.Name,
			Quantity:  it.Quantity,
			Total:     formatKES(it.Total.Cents),
			UnitPrice: formatKESFloat(it.UnitPrice()),
		})
	}
	return v
}

type proposalListPage struct {
	IsAdmin   bool
	Proposals []proposalView
	LoadErr   string
}

func (s *Server) handleProposalList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	page := proposalListPage{IsAdmin: s.sessions.IsAdmin()}
	proposals, err := s.api.Proposals(ctx)
	if err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Proposal list failed", log.FieldError, err.Error())
		page.LoadErr = gateway.UserMessage(err, "Could not load proposals. Please try again.")
	}
	for _, p := range proposals {
		page.Proposals = append(page.Proposals, proposalToView(p))
	}

	s.render(w, r, "proposals_page", page)
}

type proposalDetailPage struct {
	IsAdmin  bool
	Proposal proposalView
}

func (s *Server) handleProposalDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	proposal, err := s.api.ProposalByID(ctx, id)
	if err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Proposal lookup failed", log.FieldError, err.Error(), log.FieldProposalID, id)
		NotFoundError("Proposal not found").Write(w)
		return
	}

	page := proposalDetailPage{IsAdmin: s.sessions.IsAdmin(), Proposal: proposalToView(proposal)}
	s.render(w, r, "proposal_detail_page", page)
}

// handleProposalCreate submits a proposal from the dynamic line-item
// form. Lines arrive as parallel item_name/item_quantity/item_price
// field slices.
func (s *Server) handleProposalCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	names := r.Form["item_name"]
	quantities := r.Form["item_quantity"]
	prices := r.Form["item_price"]
	if len(names) != len(quantities) || len(names) != len(prices) {
		BadRequestError("Malformed line items").Write(w)
		return
	}

	form := core.ProposalForm{Title: sanitizeInput(r.Form.Get("title"))}
	for i := range names {
		name := sanitizeInput(names[i])
		if name == "" && quantities[i] == "" && prices[i] == "" {
			continue
		}
		quantity, err := parsePositiveInt(quantities[i])
		if err != nil {
			UnprocessableEntityError("Each line needs a whole-number quantity of at least 1").Write(w)
			return
		}
		priceCents, err := core.ParseDecimalToCents(prices[i])
		if err != nil {
			UnprocessableEntityError("Each line needs a positive unit price").Write(w)
			return
		}
		form.Items = append(form.Items, core.ProposalLine{
			Name:     name,
			Quantity: quantity,
			Price:    core.Money{Cents: priceCents},
		})
	}
	if err := form.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	sess := s.sessions.Current()
	if err := s.api.CreateProposal(ctx, form, sess.UserID); err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Proposal create failed", log.FieldError, err.Error())
		InternalServerError(gateway.UserMessage(err, "Could not submit the proposal")).Write(w)
		return
	}

	s.logger.InfoContext(ctx, "Proposal created",
		log.FieldUserID, sess.UserID,
		log.FieldAmountCents, core.ProposalFormTotal(form.Items).Cents)
	NewHTMXResponse().
		TriggerProposalCreated().
		Refresh().
		BodyHTML(`<div class="success">Proposal submitted</div>`).
		Write(w)
}

// handleProposalStatus moves a proposal out of pending. Only forward
// transitions exist; the remote API rejects updates to settled
// proposals and the UI hides the buttons once a proposal is terminal.
func (s *Server) handleProposalStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	status := core.NormalizeStatus(r.Form.Get("status"))
	if !status.Terminal() {
		UnprocessableEntityError("Status must be approved, partial, or rejected").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := s.api.UpdateProposalStatus(ctx, id, status); err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Proposal status update failed",
			log.FieldError, err.Error(),
			log.FieldProposalID, id,
			log.FieldStatus, string(status))
		InternalServerError(gateway.UserMessage(err, "Could not update the proposal")).Write(w)
		return
	}

	s.logger.InfoContext(ctx, "Proposal status updated",
		log.FieldProposalID, id,
		log.FieldStatus, string(status))
	NewHTMXResponse().
		TriggerProposalUpdated(id, string(status)).
		Refresh().
		Write(w)
}
