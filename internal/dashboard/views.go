package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/panelsync/panelsync/internal/daterange"
	"github.com/panelsync/panelsync/internal/matcher"
	"github.com/panelsync/panelsync/internal/orders"
	"github.com/panelsync/panelsync/internal/reconcile"
	"github.com/panelsync/panelsync/internal/session"
	"github.com/panelsync/panelsync/internal/shared"
)

// BalanceView is the provider balance as shown on the dashboard.
type BalanceView struct {
	Available bool         `json:"available"`
	Amount    shared.Money `json:"amount"`
	Currency  string       `json:"currency,omitempty"`
	Spend     shared.Money `json:"spend"`
}

// StatisticsView backs the statistics cards.
type StatisticsView struct {
	RangeID   daterange.ID      `json:"rangeId"`
	Range     daterange.Range   `json:"range"`
	Tabs      []daterange.Tab   `json:"tabs"`
	Stats     orders.Statistics `json:"stats"`
	Balance   BalanceView       `json:"balance"`
	Warnings  []Warning         `json:"warnings"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// Statistics computes the cards for the orders created inside rangeID.
func (s *Service) Statistics(ctx context.Context, creds session.Credentials, rangeID daterange.ID) (StatisticsView, error) {
	snap, err := s.Refresh(ctx, creds)
	if err != nil {
		return StatisticsView{}, err
	}
	now := s.now()
	rng := daterange.Resolve(rangeID, now)
	filtered := orders.Filter(snap.Orders, orders.Criteria{DateRange: &rng})
	stats := orders.Aggregate(filtered, snap.Balance)
	spend := reconcile.Reconcile(stats.SalesTotal.Decimal, snap.Balance)

	return StatisticsView{
		RangeID: rangeID,
		Range:   rng,
		Tabs:    daterange.Tabs(),
		Stats:   stats,
		Balance: BalanceView{
			Available: snap.Balance.Available(),
			Amount:    shared.NewMoney(snap.Balance.Amount),
			Currency:  snap.Balance.Currency,
			Spend:     shared.NewMoney(spend.Cost),
		},
		Warnings:  warningsOrEmpty(snap.Warnings),
		FetchedAt: snap.FetchedAt,
	}, nil
}

// OrdersQuery selects and pages the orders view.
type OrdersQuery struct {
	Range   *daterange.ID
	Status  string
	Search  string
	Page    int
	PerPage int
}

// OrderRow is one line of the orders table.
type OrderRow struct {
	ID                string       `json:"id"`
	LegacyID          string       `json:"legacyId"`
	Name              string       `json:"name"`
	CreatedAt         time.Time    `json:"createdAt"`
	Product           string       `json:"product"`
	Total             shared.Money `json:"total"`
	FinancialStatus   string       `json:"financialStatus"`
	FulfillmentStatus string       `json:"fulfillmentStatus"`
	StatusLabel       string       `json:"statusLabel"`
}

// OrdersView backs the orders table and its status tabs.
type OrdersView struct {
	Status     orders.StatusFilter   `json:"status"`
	Search     string                `json:"search"`
	Counts     orders.Counts         `json:"counts"`
	Orders     shared.Page[OrderRow] `json:"orders"`
	Pagination shared.Pagination     `json:"pagination"`
	Stats      orders.Statistics     `json:"stats"`
	Warnings   []Warning             `json:"warnings"`
}

// Orders filters, aggregates and pages the order list. Counts always cover
// the unfiltered set.
func (s *Service) Orders(ctx context.Context, creds session.Credentials, q OrdersQuery) (OrdersView, error) {
	criteria, err := s.criteria(q)
	if err != nil {
		return OrdersView{}, err
	}
	perPage, err := shared.ValidatePerPage(q.PerPage)
	if err != nil {
		return OrdersView{}, err
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	snap, err := s.Refresh(ctx, creds)
	if err != nil {
		return OrdersView{}, err
	}

	filtered := orders.Filter(snap.Orders, criteria)
	rows := toOrderRows(filtered)
	return OrdersView{
		Status:     criteria.Status,
		Search:     criteria.Search,
		Counts:     orders.CountByStatus(snap.Orders, s.now()),
		Orders:     shared.Paginate(rows, page, perPage),
		Pagination: shared.NewPagination(page, perPage, len(rows)),
		Stats:      orders.Aggregate(filtered, snap.Balance),
		Warnings:   warningsOrEmpty(snap.Warnings),
	}, nil
}

// OrderExport is the unpaged filtered order set.
type OrderExport struct {
	Rows     []OrderRow
	Stats    orders.Statistics
	Warnings []Warning
}

// ExportOrders applies the same filters as Orders without paging.
func (s *Service) ExportOrders(ctx context.Context, creds session.Credentials, q OrdersQuery) (OrderExport, error) {
	criteria, err := s.criteria(q)
	if err != nil {
		return OrderExport{}, err
	}
	snap, err := s.Refresh(ctx, creds)
	if err != nil {
		return OrderExport{}, err
	}
	filtered := orders.Filter(snap.Orders, criteria)
	return OrderExport{
		Rows:     toOrderRows(filtered),
		Stats:    orders.Aggregate(filtered, snap.Balance),
		Warnings: warningsOrEmpty(snap.Warnings),
	}, nil
}

func (s *Service) criteria(q OrdersQuery) (orders.Criteria, error) {
	status, err := orders.ParseStatus(q.Status)
	if err != nil {
		return orders.Criteria{}, err
	}
	criteria := orders.Criteria{Status: status, Search: strings.TrimSpace(q.Search)}
	if q.Range != nil {
		rng := daterange.Resolve(*q.Range, s.now())
		criteria.DateRange = &rng
	}
	return criteria, nil
}

func toOrderRows(list []orders.Order) []OrderRow {
	rows := make([]OrderRow, 0, len(list))
	for _, o := range list {
		rows = append(rows, OrderRow{
			ID:                o.ID,
			LegacyID:          orders.LegacyID(o.ID),
			Name:              o.Name,
			CreatedAt:         o.CreatedAt,
			Product:           o.FirstTitle(),
			Total:             shared.NewMoney(o.TotalAmount),
			FinancialStatus:   o.FinancialStatus,
			FulfillmentStatus: o.FulfillmentStatus,
			StatusLabel:       orders.StatusLabel(o.FulfillmentStatus),
		})
	}
	return rows
}

// ServicesQuery selects and pages the services view.
type ServicesQuery struct {
	Search  string
	Page    int
	PerPage int
}

// ServiceRow is a matched service with the bonus-adjusted quantity bounds.
type ServiceRow struct {
	matcher.MatchedServiceRow
	BonusMinMax [2]int `json:"bonusMinMax"`
}

// ServicesView backs the services table.
type ServicesView struct {
	Search       string                  `json:"search"`
	Services     shared.Page[ServiceRow] `json:"services"`
	Pagination   shared.Pagination       `json:"pagination"`
	BonusEnabled bool                    `json:"bonusEnabled"`
	Warnings     []Warning               `json:"warnings"`
}

// Services matches provider services with store products, filtered by a
// case-insensitive substring of the service name.
func (s *Service) Services(ctx context.Context, creds session.Credentials, q ServicesQuery) (ServicesView, error) {
	perPage, err := shared.ValidatePerPage(q.PerPage)
	if err != nil {
		return ServicesView{}, err
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	snap, err := s.Refresh(ctx, creds)
	if err != nil {
		return ServicesView{}, err
	}
	bonus := s.bonus(ctx, creds)
	search := strings.TrimSpace(q.Search)

	rows := make([]ServiceRow, 0, len(snap.Services))
	for _, matched := range s.matcher.MatchRows(snap.Services, snap.Products) {
		if !shared.ContainsLower(matched.ServiceName, search) {
			continue
		}
		rows = append(rows, ServiceRow{
			MatchedServiceRow: matched,
			BonusMinMax:       [2]int{bonus.ApplyBonus(matched.MinMax[0]), bonus.ApplyBonus(matched.MinMax[1])},
		})
	}
	return ServicesView{
		Search:       search,
		Services:     shared.Paginate(rows, page, perPage),
		Pagination:   shared.NewPagination(page, perPage, len(rows)),
		BonusEnabled: bonus.Enabled,
		Warnings:     warningsOrEmpty(snap.Warnings),
	}, nil
}

func warningsOrEmpty(w []Warning) []Warning {
	if w == nil {
		return []Warning{}
	}
	return w
}
