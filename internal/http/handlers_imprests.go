package http

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"gibrocash/internal/core"
	"gibrocash/internal/gateway"
	"gibrocash/internal/log"
)

type imprestListPage struct {
	IsAdmin  bool
	Imprests []imprestView
	LoadErr  string

	// Create-form data, admin only.
	Types     []string
	Assignees []assigneeOption
}

type assigneeOption struct {
	ID    string
	Name  string
	Phone string
}

// handleImprestList renders the imprest cards. Admins additionally get
// the create form with the assignable user list.
func (s *Server) handleImprestList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	sess := s.sessions.Current()
	page := imprestListPage{
		IsAdmin: sess.IsAdmin(),
		Types:   []string{core.ImprestTypeCompany, core.ImprestTypeDirector, core.ImprestTypeLoan},
	}

	var accounts []core.ImprestAccount
	var users []core.User
	var err error
	if page.IsAdmin {
		// Cards and the assignee list come from different endpoints;
		// fetch both before rendering. A missing user list only
		// degrades the create form, so its failure is logged, not shown.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var gerr error
			accounts, gerr = s.api.AdminImprests(gctx)
			return gerr
		})
		g.Go(func() error {
			var gerr error
			users, gerr = s.api.Users(gctx, sess.UserID)
			if gerr != nil && !gateway.IsAuth(gerr) {
				s.logger.ErrorContext(gctx, "User list for imprest form failed", log.FieldError, gerr.Error())
				return nil
			}
			return gerr
		})
		err = g.Wait()
	} else {
		accounts, err = s.api.ImprestsByUser(ctx, sess.UserID)
	}
	if err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Imprest list failed", log.FieldError, err.Error())
		page.LoadErr = gateway.UserMessage(err, "Could not load imprests. Please try again.")
	}
	newestFirst(accounts)
	for _, a := range accounts {
		page.Imprests = append(page.Imprests, imprestToView(a))
	}
	for _, u := range users {
		page.Assignees = append(page.Assignees, assigneeOption{ID: u.ID, Name: u.Name, Phone: u.Phone})
	}

	s.render(w, r, "imprests_page", page)
}

// handleImprestCreate opens a new imprest. Admin only; the route
// middleware already enforced that.
func (s *Server) handleImprestCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	cents, err := core.ParseDecimalToCents(r.Form.Get("amount"))
	if err != nil {
		UnprocessableEntityError("Amount must be a positive number").Write(w)
		return
	}

	form := core.ImprestForm{
		Name:       sanitizeInput(r.Form.Get("name")),
		Amount:     core.Money{Cents: cents},
		Type:       sanitizeInput(r.Form.Get("type")),
		AssigneeID: sanitizeInput(r.Form.Get("assignee_id")),
	}
	if err := form.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	sess := s.sessions.Current()
	assigneePhone := sanitizeInput(r.Form.Get("assignee_phone"))
	if err := s.api.CreateImprest(ctx, form, sess.UserID, assigneePhone); err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Imprest create failed",
			log.FieldError, err.Error(),
			log.FieldAmountCents, form.Amount.Cents,
			log.FieldImprestType, form.Type)
		InternalServerError(gateway.UserMessage(err, "Could not create the imprest")).Write(w)
		return
	}

	s.logger.InfoContext(ctx, "Imprest created",
		log.FieldUserID, sess.UserID,
		log.FieldAmountCents, form.Amount.Cents,
		log.FieldImprestType, form.Type)
	NewHTMXResponse().
		TriggerImprestCreated().
		Refresh().
		BodyHTML(`<div class="success">Imprest created</div>`).
		Write(w)
}
