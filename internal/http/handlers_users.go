package http

import (
	"context"
	"net/http"
	"time"

	"gibrocash/internal/core"
	"gibrocash/internal/gateway"
	"gibrocash/internal/log"
)

type userView struct {
	ID        string
	Name      string
	Phone     string
	Role      string
	CreatedAt string
}

type userListPage struct {
	IsAdmin bool
	Users   []userView
	LoadErr string
}

// handleUserList renders the user directory with the registration form.
// Admin only.
func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	page := userListPage{IsAdmin: true}
	users, err := s.api.Users(ctx, s.sessions.Current().UserID)
	if err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "User list failed", log.FieldError, err.Error())
		page.LoadErr = gateway.UserMessage(err, "Could not load users. Please try again.")
	}
	for _, u := range users {
		page.Users = append(page.Users, userView{
			ID:        u.ID,
			Name:      u.Name,
			Phone:     u.Phone,
			Role:      u.Role,
			CreatedAt: formatDate(u.CreatedAt),
		})
	}

	s.render(w, r, "users_page", page)
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	form := core.UserForm{
		Name:            sanitizeInput(r.Form.Get("name")),
		Phone:           sanitizeInput(r.Form.Get("phone")),
		Password:        r.Form.Get("password"),
		ConfirmPassword: r.Form.Get("confirm_password"),
		Designation:     sanitizeInput(r.Form.Get("designation")),
	}
	if err := form.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := s.api.CreateUser(ctx, form); err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "User create failed", log.FieldError, err.Error())
		InternalServerError(gateway.UserMessage(err, "Could not create the user")).Write(w)
		return
	}

	s.logger.InfoContext(ctx, "User created", log.FieldOperation, log.OpCreate)
	NewHTMXResponse().
		TriggerUserCreated().
		Refresh().
		BodyHTML(`<div class="success">User created</div>`).
		Write(w)
}
