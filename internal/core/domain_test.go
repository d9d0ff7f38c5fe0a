package core

import "testing"

func TestSessionIsAdmin(t *testing.T) {
	cases := []struct {
		designation string
		want        bool
	}{
		{"ADMIN", true},
		{"admin", true},
		{" Admin ", true},
		{"STAFF", false},
		{"", false},
	}
	for _, tc := range cases {
		s := Session{UserID: "1", Designation: tc.designation}
		if got := s.IsAdmin(); got != tc.want {
			t.Fatalf("designation %q: got %v, want %v", tc.designation, got, tc.want)
		}
	}
	if (Session{}).IsAdmin() {
		t.Fatalf("empty session must not be admin")
	}
}

func TestValidPhone(t *testing.T) {
	good := []string{"0712345678", "254712345678", "+254712345678", "0712 345 678"}
	for _, p := range good {
		if !ValidPhone(p) {
			t.Fatalf("expected %q valid", p)
		}
	}
	bad := []string{"12345", "07123456789", "+1555123456", "", "07abc45678"}
	for _, p := range bad {
		if ValidPhone(p) {
			t.Fatalf("expected %q invalid", p)
		}
	}
}

func TestProposalStatus(t *testing.T) {
	if ProposalPending.Terminal() {
		t.Fatalf("pending must not be terminal")
	}
	for _, s := range []ProposalStatus{ProposalApproved, ProposalPartial, ProposalRejected} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if got := NormalizeStatus(" Approved "); got != ProposalApproved {
		t.Fatalf("normalize: got %s", got)
	}
	if got := NormalizeStatus("weird"); got != ProposalPending {
		t.Fatalf("unknown status should default to pending, got %s", got)
	}
}

func TestUserFormValidate(t *testing.T) {
	good := UserForm{Name: "Jane", Phone: "0712345678", Password: "secret1", ConfirmPassword: "secret1", Designation: "STAFF"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		f    UserForm
		want error
	}{
		{"empty name", UserForm{Phone: "0712345678", Password: "secret1", ConfirmPassword: "secret1"}, ErrEmptyName},
		{"bad phone", UserForm{Name: "x", Phone: "123", Password: "secret1", ConfirmPassword: "secret1"}, ErrInvalidPhone},
		{"short password", UserForm{Name: "x", Phone: "0712345678", Password: "abc", ConfirmPassword: "abc"}, ErrShortPassword},
		{"mismatch", UserForm{Name: "x", Phone: "0712345678", Password: "secret1", ConfirmPassword: "secret2"}, ErrPasswordMismatch},
	}
	for _, tc := range cases {
		if err := tc.f.Validate(); err != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestImprestFormValidate(t *testing.T) {
	good := ImprestForm{Name: "Office Supplies Q1", Amount: Money{Cents: 100000}, Type: ImprestTypeCompany, AssigneeID: "7"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Type = "petty"
	if err := bad.Validate(); err != ErrInvalidType {
		t.Fatalf("got %v, want ErrInvalidType", err)
	}
	bad = good
	bad.AssigneeID = ""
	if err := bad.Validate(); err != ErrNoAssignee {
		t.Fatalf("got %v, want ErrNoAssignee", err)
	}
}

func TestTransactionFormValidate(t *testing.T) {
	good := TransactionForm{Item: "Fuel", Quantity: 2, UnitPrice: Money{Cents: 10000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []TransactionForm{
		{Item: "", Quantity: 1, UnitPrice: Money{Cents: 1}},
		{Item: "x", Quantity: 0, UnitPrice: Money{Cents: 1}},
		{Item: "x", Quantity: 1, UnitPrice: Money{Cents: 0}},
		{Item: "x", Quantity: 1, UnitPrice: Money{Cents: 1}, VAT: Money{Cents: -1}},
	}
	for i, f := range bads {
		if err := f.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestProposalFormValidate(t *testing.T) {
	good := ProposalForm{Title: "Office Equipment", Items: []ProposalLine{{Name: "Chair", Quantity: 2, Price: Money{Cents: 500000}}}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (ProposalForm{Title: "x"}).Validate(); err != ErrNoLineItems {
		t.Fatalf("got %v, want ErrNoLineItems", err)
	}
	bad := good
	bad.Items = []ProposalLine{{Name: "", Quantity: 1, Price: Money{Cents: 1}}}
	if err := bad.Validate(); err != ErrEmptyItem {
		t.Fatalf("got %v, want ErrEmptyItem", err)
	}
}
