package http

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"gibrocash/internal/core"
	"gibrocash/internal/gateway"
	"gibrocash/internal/log"
)

type transactionView struct {
	ID        string
	Item      string
	Quantity  int64
	UnitPrice string
	VAT       string
	Total     string
	CreatedAt string
	ImageID   string
}

type transactionListPage struct {
	IsAdmin    bool
	Imprests   []imprestView
	SelectedID string
	Selected   *imprestView

	Transactions []transactionView
	TotalDebits  string
	LoadErr      string
}

// handleTransactionList renders the transaction panel: an imprest
// selector and, once one is chosen, its ledger.
func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	sess := s.sessions.Current()
	page := transactionListPage{
		IsAdmin:    sess.IsAdmin(),
		SelectedID: sanitizeInput(r.URL.Query().Get("imprest")),
	}

	var accounts []core.ImprestAccount
	var err error
	if sess.IsAdmin() {
		accounts, err = s.api.AdminImprests(ctx)
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
		s.render(w, r, "transactions_page", page)
		return
	}

	newestFirst(accounts)
	for _, a := range accounts {
		v := imprestToView(a)
		page.Imprests = append(page.Imprests, v)
		if a.ID == page.SelectedID {
			selected := v
			page.Selected = &selected
		}
	}

	if page.Selected != nil {
		txns, err := s.api.TransactionsByImprest(ctx, page.SelectedID)
		if err != nil {
			if gateway.IsAuth(err) {
				redirectToLogin(w, r)
				return
			}
			s.logger.ErrorContext(ctx, "Transaction list failed",
				log.FieldError, err.Error(),
				log.FieldImprestID, page.SelectedID)
			page.LoadErr = gateway.UserMessage(err, "Could not load transactions. Please try again.")
		}
		for _, t := range txns {
			page.Transactions = append(page.Transactions, transactionView{
				ID:        t.ID,
				Item:      t.Item,
				Quantity:  t.Quantity,
				UnitPrice: formatKES(t.UnitPrice.Cents),
				VAT:       formatKES(t.VAT.Cents),
				Total:     formatKES(t.Total.Cents),
				CreatedAt: formatDate(t.CreatedAt),
				ImageID:   t.ReceiptImageID,
			})
		}
		page.TotalDebits = formatKES(core.SumDebits(txns).Cents)
	}

	s.render(w, r, "transactions_page", page)
}

// handleTransactionCreate records an expense against an imprest. A
// receipt file, when attached, is uploaded first and its URL threaded
// into the create call.
func (s *Server) handleTransactionCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		BadRequestError("Invalid request format or file too large").Write(w)
		return
	}

	imprestID := sanitizeInput(r.Form.Get("imprest_id"))
	if imprestID == "" {
		UnprocessableEntityError("Select an imprest first").Write(w)
		return
	}

	quantity, err := parsePositiveInt(r.Form.Get("quantity"))
	if err != nil {
		UnprocessableEntityError("Quantity must be a whole number of at least 1").Write(w)
		return
	}
	unitCents, err := core.ParseDecimalToCents(r.Form.Get("unit_price"))
	if err != nil {
		UnprocessableEntityError("Unit price must be a positive number").Write(w)
		return
	}
	vatCents, err := core.ParseOptionalCents(r.Form.Get("vat"))
	if err != nil {
		UnprocessableEntityError("VAT must be a number").Write(w)
		return
	}

	form := core.TransactionForm{
		Item:      sanitizeInput(r.Form.Get("item")),
		Quantity:  quantity,
		UnitPrice: core.Money{Cents: unitCents},
		VAT:       core.Money{Cents: vatCents},
	}
	if err := form.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	imageURL := ""
	if file, header, err := r.FormFile("receipt"); err == nil {
		defer file.Close()
		if !allowedReceiptName(header.Filename) {
			UnprocessableEntityError("Receipt must be an image or a PDF").Write(w)
			return
		}
		imageURL, err = s.api.UploadReceiptForImprest(ctx, imprestID, header.Filename, file)
		if err != nil {
			if gateway.IsAuth(err) {
				redirectToLogin(w, r)
				return
			}
			s.logger.ErrorContext(ctx, "Receipt upload failed", log.FieldError, err.Error())
			InternalServerError(gateway.UserMessage(err, "Could not upload the receipt")).Write(w)
			return
		}
	}

	sess := s.sessions.Current()
	if err := s.api.CreateTransaction(ctx, form, imprestID, sess.UserID, imageURL); err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Transaction create failed",
			log.FieldError, err.Error(),
			log.FieldImprestID, imprestID)
		InternalServerError(gateway.UserMessage(err, "Could not record the transaction")).Write(w)
		return
	}

	total := core.TransactionTotal(form.Quantity, form.UnitPrice, form.VAT)
	s.requests.LogTransactionCreated(ctx, imprestID, total.Cents, form.Item)
	NewHTMXResponse().
		TriggerTransactionCreated(imprestID).
		Refresh().
		BodyHTML(`<div class="success">Transaction recorded</div>`).
		Write(w)
}

// handleTransactionDelete removes a transaction. The server restores the
// imprest balance, so the page re-fetches instead of adjusting locally.
func (s *Server) handleTransactionDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		NotFoundError("Transaction not found").Write(w)
		return
	}
	imprestID := sanitizeInput(r.URL.Query().Get("imprest"))

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := s.api.DeleteTransaction(ctx, id); err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Transaction delete failed",
			log.FieldError, err.Error(),
			log.FieldTransactionID, id)
		InternalServerError(gateway.UserMessage(err, "Could not delete the transaction")).Write(w)
		return
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldImprestID, imprestID)
	NewHTMXResponse().
		TriggerTransactionDeleted(imprestID).
		Refresh().
		Write(w)
}

// handleReceipt resolves a receipt image id and sends the browser to the
// remote file.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	imageID := r.PathValue("imageID")
	if imageID == "" {
		NotFoundError("Receipt not found").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	path, err := s.api.ReceiptPath(ctx, imageID)
	if err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Receipt lookup failed", log.FieldError, err.Error(), "image_id", imageID)
		NotFoundError("Receipt not found").Write(w)
		return
	}
	if path == "" {
		NotFoundError("Receipt not found").Write(w)
		return
	}
	http.Redirect(w, r, s.api.ImageURL(path), http.StatusFound)
}

func parsePositiveInt(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	var n int64
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, core.ErrInvalidQuantity
		}
		n = n*10 + int64(r-'0')
		if n > 1_000_000 {
			return 0, core.ErrInvalidQuantity
		}
	}
	if raw == "" || n < 1 {
		return 0, core.ErrInvalidQuantity
	}
	return n, nil
}

// allowedReceiptName restricts uploads to the receipt formats the remote
// store serves back.
func allowedReceiptName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".pdf":
		return true
	}
	return false
}
