// Wire shapes for the remote API, one struct per payload the server is
// known to emit. Field names vary per endpoint and per role; the flex
// types below absorb the type looseness (numbers as strings, nulls,
// absent fields) so normalization never fails on a malformed amount.
package gateway

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type (
	// flexID tolerates string or numeric identifiers.
	flexID string

	// flexCents decodes a decimal KES amount that may arrive as a JSON
	// number, a numeric string, null, or not at all. Anything unparseable
	// normalizes to 0 cents rather than failing the whole payload.
	flexCents int64

	// flexInt tolerates numeric or string integers.
	flexInt int64

	// flexBool tolerates bool, 0/1, and "true"/"false".
	flexBool bool

	// flexTime parses the handful of timestamp layouts the API emits.
	// Unparseable input decodes to the zero time.
	flexTime struct {
		time.Time
	}
)

func isNull(b []byte) bool {
	return len(b) == 0 || bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

func unquote(b []byte) (string, bool) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false
	}
	return s, true
}

func (f *flexID) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*f = ""
		return nil
	}
	if s, ok := unquote(b); ok {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	*f = ""
	return nil
}

func (f *flexCents) UnmarshalJSON(b []byte) error {
	*f = flexCents(centsFromJSON(b))
	return nil
}

func centsFromJSON(b []byte) int64 {
	if isNull(b) {
		return 0
	}
	raw := string(bytes.TrimSpace(b))
	if s, ok := unquote(b); ok {
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v * 100))
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	*f = 0
	if isNull(b) {
		return nil
	}
	raw := string(bytes.TrimSpace(b))
	if s, ok := unquote(b); ok {
		raw = strings.TrimSpace(s)
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		*f = flexInt(int64(v))
	}
	return nil
}

func (f *flexBool) UnmarshalJSON(b []byte) error {
	*f = false
	if isNull(b) {
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = flexBool(v)
		return nil
	}
	raw := string(bytes.TrimSpace(b))
	if s, ok := unquote(b); ok {
		raw = strings.TrimSpace(s)
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		*f = true
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	f.Time = time.Time{}
	if isNull(b) {
		return nil
	}
	s, ok := unquote(b)
	if !ok {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.Time = t
			return nil
		}
	}
	return nil
}

// Responses.

type loginResponse struct {
	Token       string `json:"token"`
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Designation string `json:"designation"`
}

type userListResponse struct {
	Response []userRow `json:"response"`
}

type userRow struct {
	ID             flexID   `json:"id"`
	Name           string   `json:"name"`
	Phone          string   `json:"phone"`
	CreatedAt      flexTime `json:"createdAt"`
	DesignationTbl *struct {
		Name string `json:"name"`
	} `json:"designation_tbl"`
}

type adminImprestListResponse struct {
	Response []adminImprestRow `json:"response"`
}

type adminImprestRow struct {
	ID          flexID        `json:"id"`
	ImprestName string        `json:"imprestName"`
	Allocated   flexCents     `json:"allocated"`
	UsedAmount  flexCents     `json:"usedAmount"`
	Source      string        `json:"source"`
	CreatedAt   flexTime      `json:"createdAt"`
	AssignedTo  []assigneeRow `json:"assignedTo"`
}

type assigneeRow struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

type staffImprestListResponse struct {
	Response []staffImprestRow `json:"response"`
}

type staffImprestRow struct {
	ID                    flexID    `json:"id"`
	Name                  string    `json:"name"`
	Amount                flexCents `json:"amount"`
	TotalTransactionPrice flexCents `json:"totalTransactionPrice"`
	Source                string    `json:"source"`
	ClosedStatusFlag      flexBool  `json:"closedStatus_Flag"`
	CreatedAt             flexTime  `json:"createdAt"`
}

type adminTotalsResponse struct {
	TotalAllocated  flexCents `json:"totalAllocated"`
	TotalUsedAmount flexCents `json:"totalUsedAmount"`
}

// transactionListResponse keeps rows raw: the nested transactions.rows
// path is sometimes absent or not a sequence, and that must normalize to
// an empty list instead of a decode failure.
type transactionListResponse struct {
	Transactions struct {
		Count flexInt         `json:"count"`
		Rows  json.RawMessage `json:"rows"`
	} `json:"transactions"`
}

type transactionRow struct {
	ID         flexID    `json:"id"`
	Item       string    `json:"item"`
	Quantity   flexInt   `json:"quantity"`
	UnitPrice  flexCents `json:"unitPrice"`
	VATCharged flexCents `json:"vat_charged"`
	Price      flexCents `json:"price"`
	CreatedAt  flexTime  `json:"createdAt"`
	ImagesID   flexID    `json:"images_id"`
}

type proposalListResponse struct {
	Proposals []proposalRow `json:"proposals"`
}

type proposalDetailResponse struct {
	Proposal proposalRow `json:"proposal"`
}

type proposalRow struct {
	ID        flexID            `json:"id"`
	Name      string            `json:"name"`
	Total     flexCents         `json:"total"`
	Status    string            `json:"status"`
	CreatedAt flexTime          `json:"createdAt"`
	Items     []proposalItemRow `json:"item_proposed_tbls"`
}

type proposalItemRow struct {
	ID         flexID    `json:"id"`
	Item       string    `json:"item"`
	Quantity   flexInt   `json:"quantity"`
	TotalPrice flexCents `json:"total_price"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

type imagePathResponse struct {
	Path string `json:"path"`
}

// Requests.

type loginRequest struct {
	PhoneNo  string `json:"phoneNo"`
	Password string `json:"password"`
}

type createUserRequest struct {
	UserName    string `json:"UserName"`
	PhoneNo     string `json:"phoneNo"`
	Password    string `json:"password"`
	Designation string `json:"designation"`
}

type createImprestRequest struct {
	Name       string          `json:"name"`
	Amount     float64         `json:"amount"`
	CreatedBy  string          `json:"createdBy"`
	AssignedTo imprestAssignee `json:"assignedTo"`
	Type       string          `json:"ImprestType"`
}

type imprestAssignee struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
}

type createTransactionRequest struct {
	Item        string  `json:"item"`
	Quantity    int64   `json:"itemQuantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalAmount float64 `json:"Total_amount"`
	ImprestID   string  `json:"imprestAccount_id"`
	UserID      string  `json:"userID"`
	VATCharged  float64 `json:"vat_charged"`
	ImageURL    string  `json:"url_image"`
}

type createProposalRequest struct {
	Title     string                `json:"title"`
	Amount    float64               `json:"amount"`
	CreatedBy string                `json:"createdBy"`
	Items     []proposalItemRequest `json:"items"`
}

type proposalItemRequest struct {
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

type updateProposalStatusRequest struct {
	ProposalID string `json:"proposalId"`
	Status     string `json:"status"`
}
