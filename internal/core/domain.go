package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Proposal workflow statuses. Transitions are one-way: a proposal leaves
// Pending exactly once and never returns.
const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalPartial  ProposalStatus = "partial"
	ProposalRejected ProposalStatus = "rejected"
)

// Imprest types accepted by the remote API.
const (
	ImprestTypeCompany  = "company imprest"
	ImprestTypeDirector = "directors advance"
	ImprestTypeLoan     = "loan"
)

type (
	ProposalStatus string

	// Session is the authenticated identity. It is empty until login and
	// cleared on logout or on any authorization-denied response.
	Session struct {
		UserID      string
		Name        string
		Phone       string
		Designation string
	}

	Assignee struct {
		ID   string
		Name string
	}

	// ImprestAccount is the canonical imprest shape regardless of which
	// endpoint (admin or staff) produced it. Used mutates server-side as
	// transactions are created or deleted; the client never owns it.
	ImprestAccount struct {
		ID          string
		DisplayName string
		Allocated   Money
		Used        Money
		Source      string
		CreatedAt   time.Time
		Closed      bool
		Assignees   []Assignee
	}

	// Transaction is a single expense recorded against an imprest.
	// Total is authoritative from the server and is not recomputed from
	// Quantity and UnitPrice on this side.
	Transaction struct {
		ID             string
		ImprestID      string
		Item           string
		Quantity       int64
		UnitPrice      Money
		VAT            Money
		Total          Money
		CreatedAt      time.Time
		ReceiptImageID string
	}

	Proposal struct {
		ID        string
		Title     string
		Total     Money
		Status    ProposalStatus
		CreatedAt time.Time
		Items     []ProposalItem
	}

	// ProposalItem stores only the line total; the unit price is derived.
	ProposalItem struct {
		ID       string
		Name     string
		Quantity int64
		Total    Money
	}

	User struct {
		ID        string
		Name      string
		Phone     string
		Role      string
		CreatedAt time.Time
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyItem        = errors.New("empty item description")
	ErrEmptyTitle       = errors.New("empty title")
	ErrInvalidPhone     = errors.New("invalid Kenyan phone number")
	ErrShortPassword    = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrNoAssignee       = errors.New("no assignee selected")
	ErrNoLineItems      = errors.New("proposal needs at least one item")
	ErrInvalidType      = errors.New("invalid imprest type")
)

// Accepted formats: 07XXXXXXXX, 254XXXXXXXXX, +254XXXXXXXXX.
var phonePattern = regexp.MustCompile(`^(0|\+?254)\d{9}$`)

// ValidPhone reports whether s is a well-formed Kenyan phone number.
// Whitespace is stripped before matching.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(strings.ReplaceAll(s, " ", ""))
}

// IsEmpty reports whether no identity is held.
func (s Session) IsEmpty() bool {
	return s.UserID == ""
}

// IsAdmin derives the role predicate from the designation. Empty sessions
// are never admin.
func (s Session) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(s.Designation), "admin")
}

// Terminal reports whether the status permits no further transitions.
func (ps ProposalStatus) Terminal() bool {
	switch ps {
	case ProposalApproved, ProposalPartial, ProposalRejected:
		return true
	}
	return false
}

// Valid reports whether ps is one of the four workflow statuses.
func (ps ProposalStatus) Valid() bool {
	switch ps {
	case ProposalPending, ProposalApproved, ProposalPartial, ProposalRejected:
		return true
	}
	return false
}

// NormalizeStatus maps a raw server status string onto the workflow set,
// defaulting to pending for anything unrecognized.
func NormalizeStatus(raw string) ProposalStatus {
	ps := ProposalStatus(strings.ToLower(strings.TrimSpace(raw)))
	if ps.Valid() {
		return ps
	}
	return ProposalPending
}

// LoginForm holds credentials prior to the login call.
type LoginForm struct {
	Phone    string
	Password string
}

func (f LoginForm) Validate() error {
	if !ValidPhone(f.Phone) {
		return ErrInvalidPhone
	}
	if len(f.Password) == 0 {
		return ErrShortPassword
	}
	return nil
}

// UserForm holds the registration fields checked before any network call.
type UserForm struct {
	Name            string
	Phone           string
	Password        string
	ConfirmPassword string
	Designation     string
}

func (f UserForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if !ValidPhone(f.Phone) {
		return ErrInvalidPhone
	}
	if len(f.Password) < 6 {
		return ErrShortPassword
	}
	if f.Password != f.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// ImprestForm holds the admin create-imprest fields.
type ImprestForm struct {
	Name       string
	Amount     Money
	Type       string
	AssigneeID string
}

func (f ImprestForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if err := f.Amount.Validate(); err != nil {
		return err
	}
	switch f.Type {
	case ImprestTypeCompany, ImprestTypeDirector, ImprestTypeLoan:
	default:
		return ErrInvalidType
	}
	if strings.TrimSpace(f.AssigneeID) == "" {
		return ErrNoAssignee
	}
	return nil
}

// TransactionForm holds an unsaved transaction. VAT may be zero.
type TransactionForm struct {
	Item      string
	Quantity  int64
	UnitPrice Money
	VAT       Money
}

func (f TransactionForm) Validate() error {
	if strings.TrimSpace(f.Item) == "" {
		return ErrEmptyItem
	}
	if f.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if err := f.UnitPrice.Validate(); err != nil {
		return err
	}
	if f.VAT.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ProposalLine is one unsaved proposal line: price here is per unit.
type ProposalLine struct {
	Name     string
	Quantity int64
	Price    Money
}

type ProposalForm struct {
	Title string
	Items []ProposalLine
}

func (f ProposalForm) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrEmptyTitle
	}
	if len(f.Items) == 0 {
		return ErrNoLineItems
	}
	for _, it := range f.Items {
		if strings.TrimSpace(it.Name) == "" {
			return ErrEmptyItem
		}
		if it.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if err := it.Price.Validate(); err != nil {
			return err
		}
	}
	return nil
}
