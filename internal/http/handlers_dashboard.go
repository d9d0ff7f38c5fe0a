package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"gibrocash/internal/core"
	"gibrocash/internal/gateway"
	"gibrocash/internal/log"
)

// imprestView is the card shape shared by the dashboard and the imprest
// listing.
type imprestView struct {
	ID          string
	Name        string
	Source      string
	Allocated   string
	Used        string
	Balance     string
	Overspent   bool
	Utilization string
	BarWidth    int
	Status      string
	BadgeClass  string
	CreatedAt   string
	Assignees   []string
}

// newestFirst orders accounts by creation time, newest first. Rows
// without a timestamp keep their server order at the end.
func newestFirst(accounts []core.ImprestAccount) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
}

func imprestToView(a core.ImprestAccount) imprestView {
	balance := core.Balance(a)
	st := core.Classify(a)
	v := imprestView{
		ID:          a.ID,
		Name:        a.DisplayName,
		Source:      a.Source,
		Allocated:   formatKES(a.Allocated.Cents),
		Used:        formatKES(a.Used.Cents),
		Balance:     formatKES(balance.Cents),
		Overspent:   balance.Cents < 0,
		Utilization: formatPercent(core.UtilizationPercent(a)),
		BarWidth:    core.BarWidth(a),
		Status:      string(st),
		BadgeClass:  statusBadgeClass(st),
		CreatedAt:   formatDate(a.CreatedAt),
	}
	for _, as := range a.Assignees {
		v.Assignees = append(v.Assignees, as.Name)
	}
	return v
}

type dashboardPage struct {
	UserName string
	IsAdmin  bool

	// Admin aggregates.
	TotalAllocated string
	TotalUsed      string
	TotalBalance   string

	Imprests []imprestView
	LoadErr  string
}

// handleDashboard renders the landing page. Admins see organization-wide
// totals alongside every imprest; staff see only their own accounts. The
// two admin fetches run concurrently and the page renders once both have
// resolved.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	sess := s.sessions.Current()
	page := dashboardPage{UserName: sess.Name, IsAdmin: sess.IsAdmin()}

	var err error
	if page.IsAdmin {
		err = s.loadAdminDashboard(ctx, &page)
	} else {
		err = s.loadStaffDashboard(ctx, sess.UserID, &page)
	}
	if err != nil {
		if gateway.IsAuth(err) {
			redirectToLogin(w, r)
			return
		}
		s.logger.ErrorContext(ctx, "Dashboard load failed", log.FieldError, err.Error())
		page.LoadErr = gateway.UserMessage(err, "Could not load dashboard data. Please try again.")
	}

	s.render(w, r, "dashboard_page", page)
}

func (s *Server) loadAdminDashboard(ctx context.Context, page *dashboardPage) error {
	var (
		totals   gateway.Totals
		accounts []core.ImprestAccount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.api.AdminTotals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		accounts, err = s.api.AdminImprests(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	page.TotalAllocated = formatKES(totals.Allocated.Cents)
	page.TotalUsed = formatKES(totals.Used.Cents)
	page.TotalBalance = formatKES(totals.Allocated.Cents - totals.Used.Cents)
	newestFirst(accounts)
	for _, a := range accounts {
		page.Imprests = append(page.Imprests, imprestToView(a))
	}
	return nil
}

func (s *Server) loadStaffDashboard(ctx context.Context, userID string, page *dashboardPage) error {
	accounts, err := s.api.ImprestsByUser(ctx, userID)
	if err != nil {
		return err
	}
	newestFirst(accounts)
	var allocated, used int64
	for _, a := range accounts {
		allocated += a.Allocated.Cents
		used += a.Used.Cents
		page.Imprests = append(page.Imprests, imprestToView(a))
	}
	page.TotalAllocated = formatKES(allocated)
	page.TotalUsed = formatKES(used)
	page.TotalBalance = formatKES(allocated - used)
	return nil
}
