// Package gateway is the HTTP client for the remote finance API. Every
// outbound request carries the current bearer token; every 401 or 403
// fires the configured auth-failure hook before the error is returned, so
// a revoked session is torn down exactly once regardless of which call
// discovered it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gibrocash/internal/core"
	"gibrocash/internal/log"
)

// TokenProvider yields the bearer token for outbound requests. An empty
// string means no token is attached.
type TokenProvider interface {
	Token() string
}

// Totals is the admin dashboard's aggregate pair.
type Totals struct {
	Allocated core.Money
	Used      core.Money
}

// Client talks to the remote API and returns canonical entities. It is
// safe for concurrent use.
type Client struct {
	baseURL    string
	hc         *http.Client
	tokens     TokenProvider
	onAuthFail func()
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithLogger attaches a logger for request-level diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a Client for the API at baseURL. tokens may be nil for an
// unauthenticated client.
func New(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnAuthFailure registers fn to run whenever the server denies a request
// with 401 or 403. It fires before the AuthError reaches the caller.
func (c *Client) OnAuthFailure(fn func()) {
	c.onAuthFail = fn
}

// do performs one request. A non-nil body is JSON-encoded unless it is
// already an io.Reader with an explicit content type. On a 2xx response
// the body is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case *multipartBody:
		reader = b.buf
		contentType = b.contentType
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if c.logger != nil {
			c.logger.Warn("authorization denied", "path", path, "status", resp.StatusCode)
		}
		if c.onAuthFail != nil {
			c.onAuthFail()
		}
		return &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Status: resp.StatusCode, Message: serverMessage(resp.Body)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// serverMessage pulls the message field out of an error body, tolerating
// both {"message": ...} and {"error": ...} shapes.
func serverMessage(r io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// Login exchanges credentials for a session and its bearer token.
func (c *Client) Login(ctx context.Context, phone, password string) (core.Session, string, error) {
	var resp loginResponse
	req := loginRequest{PhoneNo: strings.ReplaceAll(phone, " ", ""), Password: password}
	if err := c.do(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		return core.Session{}, "", err
	}
	session := core.Session{
		UserID:      string(resp.ID),
		Name:        resp.Name,
		Phone:       resp.Phone,
		Designation: resp.Designation,
	}
	return session, resp.Token, nil
}

// Users lists users visible to the caller.
func (c *Client) Users(ctx context.Context, userID string) ([]core.User, error) {
	var resp userListResponse
	if err := c.do(ctx, http.MethodGet, "/getUsers/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	users := make([]core.User, 0, len(resp.Response))
	for _, row := range resp.Response {
		users = append(users, normalizeUser(row))
	}
	return users, nil
}

// CreateUser registers a new user. Validation has already happened on the
// form; the server remains the final authority.
func (c *Client) CreateUser(ctx context.Context, f core.UserForm) error {
	req := createUserRequest{
		UserName:    f.Name,
		PhoneNo:     strings.ReplaceAll(f.Phone, " ", ""),
		Password:    f.Password,
		Designation: f.Designation,
	}
	return c.do(ctx, http.MethodPost, "/create_user", req, nil)
}

// CreateImprest opens a new imprest assigned to one user.
func (c *Client) CreateImprest(ctx context.Context, f core.ImprestForm, createdBy, assigneePhone string) error {
	req := createImprestRequest{
		Name:      f.Name,
		Amount:    f.Amount.Shillings(),
		CreatedBy: createdBy,
		AssignedTo: imprestAssignee{
			ID:    f.AssigneeID,
			Phone: strings.ReplaceAll(assigneePhone, " ", ""),
		},
		Type: f.Type,
	}
	return c.do(ctx, http.MethodPost, "/create_imprest", req, nil)
}

// ImprestsByUser lists the imprests assigned to one user (staff view).
func (c *Client) ImprestsByUser(ctx context.Context, userID string) ([]core.ImprestAccount, error) {
	var resp staffImprestListResponse
	if err := c.do(ctx, http.MethodGet, "/getImprests/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	accounts := make([]core.ImprestAccount, 0, len(resp.Response))
	for _, row := range resp.Response {
		accounts = append(accounts, normalizeStaffImprest(row))
	}
	return accounts, nil
}

// AdminImprests lists every imprest with per-account usage (admin view).
func (c *Client) AdminImprests(ctx context.Context) ([]core.ImprestAccount, error) {
	var resp adminImprestListResponse
	if err := c.do(ctx, http.MethodGet, "/adminAllImprestSummation", nil, &resp); err != nil {
		return nil, err
	}
	accounts := make([]core.ImprestAccount, 0, len(resp.Response))
	for _, row := range resp.Response {
		accounts = append(accounts, normalizeAdminImprest(row))
	}
	return accounts, nil
}

// AdminTotals fetches the organization-wide allocated and used sums.
func (c *Client) AdminTotals(ctx context.Context) (Totals, error) {
	var resp adminTotalsResponse
	if err := c.do(ctx, http.MethodGet, "/adminSummaries", nil, &resp); err != nil {
		return Totals{}, err
	}
	return Totals{
		Allocated: core.Money{Cents: int64(resp.TotalAllocated)},
		Used:      core.Money{Cents: int64(resp.TotalUsedAmount)},
	}, nil
}

// CreateTransaction records one expense against an imprest. imageURL is
// the receipt location from a prior upload, or empty when no receipt was
// attached.
func (c *Client) CreateTransaction(ctx context.Context, f core.TransactionForm, imprestID, userID, imageURL string) error {
	total := core.TransactionTotal(f.Quantity, f.UnitPrice, f.VAT)
	req := createTransactionRequest{
		Item:        f.Item,
		Quantity:    f.Quantity,
		UnitPrice:   f.UnitPrice.Shillings(),
		TotalAmount: total.Shillings(),
		ImprestID:   imprestID,
		UserID:      userID,
		VATCharged:  f.VAT.Shillings(),
		ImageURL:    imageURL,
	}
	return c.do(ctx, http.MethodPost, "/create_transaction", req, nil)
}

// TransactionsByImprest lists the transactions recorded against one
// imprest. A missing or malformed row set yields an empty list.
func (c *Client) TransactionsByImprest(ctx context.Context, imprestID string) ([]core.Transaction, error) {
	var resp transactionListResponse
	if err := c.do(ctx, http.MethodGet, "/imprestAccount_trnsctns/"+url.PathEscape(imprestID), nil, &resp); err != nil {
		return nil, err
	}
	return normalizeTransactionRows(imprestID, resp.Transactions.Rows), nil
}

// DeleteTransaction removes one transaction. The server restores the
// imprest balance; callers re-fetch rather than adjust locally.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/create_transaction/"+url.PathEscape(id), nil, nil)
}

// CreateProposal submits a purchase proposal with its line items.
func (c *Client) CreateProposal(ctx context.Context, f core.ProposalForm, createdBy string) error {
	req := createProposalRequest{
		Title:     f.Title,
		Amount:    core.ProposalFormTotal(f.Items).Shillings(),
		CreatedBy: createdBy,
	}
	for _, line := range f.Items {
		req.Items = append(req.Items, proposalItemRequest{
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.Price.Shillings(),
		})
	}
	return c.do(ctx, http.MethodPost, "/imprestProposal", req, nil)
}

// UpdateProposalStatus moves a proposal out of pending.
func (c *Client) UpdateProposalStatus(ctx context.Context, id string, status core.ProposalStatus) error {
	req := updateProposalStatusRequest{ProposalID: id, Status: string(status)}
	return c.do(ctx, http.MethodPatch, "/imprestProposal", req, nil)
}

// Proposals lists all proposals with their items.
func (c *Client) Proposals(ctx context.Context) ([]core.Proposal, error) {
	var resp proposalListResponse
	if err := c.do(ctx, http.MethodGet, "/proposals", nil, &resp); err != nil {
		return nil, err
	}
	proposals := make([]core.Proposal, 0, len(resp.Proposals))
	for _, row := range resp.Proposals {
		proposals = append(proposals, normalizeProposal(row))
	}
	return proposals, nil
}

// ProposalByID fetches one proposal with its items.
func (c *Client) ProposalByID(ctx context.Context, id string) (core.Proposal, error) {
	var resp proposalDetailResponse
	if err := c.do(ctx, http.MethodGet, "/proposals/"+url.PathEscape(id), nil, &resp); err != nil {
		return core.Proposal{}, err
	}
	return normalizeProposal(resp.Proposal), nil
}

// multipartBody carries a prepared multipart form through do.
type multipartBody struct {
	buf         *bytes.Buffer
	contentType string
}

// buildMultipart assembles a form with the plain fields written ahead of
// the file part.
func buildMultipart(field, filename string, content io.Reader, fields map[string]string) (*multipartBody, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("writing %s field: %w", name, err)
		}
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copying upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}
	return &multipartBody{buf: buf, contentType: w.FormDataContentType()}, nil
}

// UploadReceipt uploads a receipt file ahead of proposal creation and
// returns the stored URL.
func (c *Client) UploadReceipt(ctx context.Context, filename string, content io.Reader) (string, error) {
	return c.upload(ctx, "/upload", filename, content, nil)
}

// UploadReceiptForImprest uploads a receipt attached to an imprest
// transaction and returns the stored URL. The imprest id travels as a
// form field so the server can associate the stored image.
func (c *Client) UploadReceiptForImprest(ctx context.Context, imprestID, filename string, content io.Reader) (string, error) {
	return c.upload(ctx, "/upload_fromImprest", filename, content, map[string]string{"imprest_id": imprestID})
}

func (c *Client) upload(ctx context.Context, path, filename string, content io.Reader, fields map[string]string) (string, error) {
	body, err := buildMultipart("file", filename, content, fields)
	if err != nil {
		return "", err
	}
	var resp uploadResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// ReceiptPath resolves a stored image id to its server-side path.
func (c *Client) ReceiptPath(ctx context.Context, imageID string) (string, error) {
	var resp imagePathResponse
	if err := c.do(ctx, http.MethodGet, "/TransactionImages/"+url.PathEscape(imageID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

// ImageURL builds the absolute URL for a stored receipt path.
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return c.baseURL + "/gibroFinanceimages/" + strings.TrimLeft(path, "/")
}
