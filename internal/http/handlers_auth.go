package http

import (
	"net/http"

	"gibrocash/internal/core"
	"gibrocash/internal/gateway"
	"gibrocash/internal/log"
)

// handleLoginPage renders the login form. An authenticated browser is
// sent straight to the dashboard.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.sessions.Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login_page", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	form := core.LoginForm{
		Phone:    sanitizeInput(r.Form.Get("phone")),
		Password: r.Form.Get("password"),
	}
	if err := form.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	sess, err := s.sessions.Login(r.Context(), s.api, form.Phone, form.Password)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Login failed", log.FieldError, err.Error())
		msg := gateway.UserMessage(err, "Login failed. Check your phone number and password.")
		UnprocessableEntityError(msg).Write(w)
		return
	}

	s.logger.InfoContext(r.Context(), "Login succeeded", log.FieldUserID, sess.UserID)
	NewHTMXResponse().Redirect("/").Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(); err != nil {
		s.logger.ErrorContext(r.Context(), "Logout failed", log.FieldError, err.Error())
	}
	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().Redirect("/login").Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
