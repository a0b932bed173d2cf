package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/ports"
)

// Report is a named aggregation pipeline over one of the sample collections.
type Report struct {
	Name        string
	Description string
	Collection  string
	Pipeline    []domain.Value
}

type ReportService struct {
	aggregator ports.Aggregator
	reports    map[string]Report
}

func NewReportService(aggregator ports.Aggregator) *ReportService {
	reports := make(map[string]Report)
	for _, r := range SampleReports() {
		reports[r.Name] = r
	}
	return &ReportService{aggregator: aggregator, reports: reports}
}

// Names lists the available reports in alphabetical order.
func (s *ReportService) Names() []string {
	names := make([]string, 0, len(s.reports))
	for name := range s.reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *ReportService) Report(name string) (Report, error) {
	r, ok := s.reports[name]
	if !ok {
		return Report{}, fmt.Errorf("report %q: %w", name, domain.ErrNotFound)
	}
	return r, nil
}

func (s *ReportService) Run(ctx context.Context, name string) ([]domain.Value, error) {
	r, err := s.Report(name)
	if err != nil {
		return nil, err
	}
	rows, err := s.aggregator.Aggregate(ctx, r.Collection, r.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("run report %s: %w", name, err)
	}
	return rows, nil
}

func stage(op string, body domain.Value) domain.Value {
	return domain.Doc(domain.E(op, body))
}

func lookup(from, localField, foreignField, as string) domain.Value {
	return stage("$lookup", domain.Doc(
		domain.E("from", domain.String(from)),
		domain.E("localField", domain.String(localField)),
		domain.E("foreignField", domain.String(foreignField)),
		domain.E("as", domain.String(as)),
	))
}

func op(name string, arg domain.Value) domain.Value {
	return domain.Doc(domain.E(name, arg))
}

func include(fields ...string) domain.Value {
	out := make([]domain.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, domain.E(f, domain.Int(1)))
	}
	return domain.Doc(out...)
}

// SampleReports returns the aggregation demos over the seeded collections.
func SampleReports() []Report {
	s := domain.String
	return []Report{
		{
			Name:        "orders-over-500",
			Description: "orders with a total above 500",
			Collection:  domain.CollectionOrders,
			Pipeline: []domain.Value{
				stage("$match", domain.Doc(domain.E("total", op("$gt", domain.Int(500))))),
			},
		},
		{
			Name:        "orders-by-user",
			Description: "order count and amount per user",
			Collection:  domain.CollectionOrders,
			Pipeline: []domain.Value{
				stage("$group", domain.Doc(
					domain.E("_id", s("$user_id")),
					domain.E("total_orders", op("$sum", domain.Int(1))),
					domain.E("total_amount", op("$sum", s("$total"))),
				)),
			},
		},
		{
			Name:        "orders-by-total",
			Description: "orders sorted by total, largest first",
			Collection:  domain.CollectionOrders,
			Pipeline: []domain.Value{
				stage("$sort", domain.Doc(domain.E("total", domain.Int(-1)))),
			},
		},
		{
			Name:        "order-totals",
			Description: "order id and total only",
			Collection:  domain.CollectionOrders,
			Pipeline: []domain.Value{
				stage("$project", domain.Doc(
					domain.E("order_id", domain.Int(1)),
					domain.E("total", domain.Int(1)),
					domain.E("_id", domain.Int(0)),
				)),
			},
		},
		{
			Name:        "orders-with-users",
			Description: "orders joined with their user",
			Collection:  domain.CollectionOrders,
			Pipeline: []domain.Value{
				lookup(domain.CollectionUsers, "user_id", "user_id", "user_details"),
			},
		},
		{
			Name:        "user-tax",
			Description: "amount per user with 5% tax",
			Collection:  domain.CollectionOrders,
			Pipeline: []domain.Value{
				stage("$group", domain.Doc(
					domain.E("_id", s("$user_id")),
					domain.E("total_amount", op("$sum", s("$total"))),
				)),
				stage("$addFields", domain.Doc(
					domain.E("Tax", op("$multiply", domain.Array(s("$total_amount"), domain.Number(0.05)))),
				)),
			},
		},
		{
			Name:        "orders-with-user-details",
			Description: "orders with the user document unwound",
			Collection:  domain.CollectionOrders,
			Pipeline: []domain.Value{
				lookup(domain.CollectionUsers, "user_id", "user_id", "user_details"),
				stage("$unwind", s("$user_details")),
			},
		},
		{
			Name:        "user-order-totals",
			Description: "users with the sum of all their orders",
			Collection:  domain.CollectionUsers,
			Pipeline: []domain.Value{
				lookup(domain.CollectionOrders, "user_id", "user_id", "Orders"),
				stage("$unwind", s("$Orders")),
				stage("$group", domain.Doc(
					domain.E("_id", s("$user_id")),
					domain.E("Username", op("$first", s("$username"))),
					domain.E("TotalOrderAmount", op("$sum", s("$Orders.total"))),
				)),
			},
		},
		{
			Name:        "orders-with-users-and-products",
			Description: "orders joined with their user and products",
			Collection:  domain.CollectionOrders,
			Pipeline: []domain.Value{
				lookup(domain.CollectionUsers, "user_id", "user_id", "user_details"),
				lookup(domain.CollectionProducts, "items.product_id", "product_id", "product_details"),
				stage("$project", include("order_id", "user_id", "items", "total", "order_date", "user_details", "product_details")),
			},
		},
		{
			Name:        "latest-order-per-user",
			Description: "each user with their most recent order",
			Collection:  domain.CollectionUsers,
			Pipeline: []domain.Value{
				lookup(domain.CollectionOrders, "user_id", "user_id", "Orders"),
				stage("$unwind", s("$Orders")),
				stage("$sort", domain.Doc(domain.E("Orders.order_date", domain.Int(-1)))),
				stage("$group", domain.Doc(
					domain.E("_id", s("$user_id")),
					domain.E("Username", op("$first", s("$username"))),
					domain.E("LatestOrder", op("$first", s("$Orders"))),
				)),
			},
		},
		{
			Name:        "products-with-buyers",
			Description: "products with order and buyer counts",
			Collection:  domain.CollectionProducts,
			Pipeline: []domain.Value{
				lookup(domain.CollectionOrders, "product_id", "items.product_id", "order_details"),
				lookup(domain.CollectionUsers, "order_details.user_id", "user_id", "buyer_details"),
				stage("$group", domain.Doc(
					domain.E("_id", s("$_id")),
					domain.E("product_id", op("$first", s("$product_id"))),
					domain.E("productName", op("$first", s("$productName"))),
					domain.E("category", op("$first", s("$category"))),
					domain.E("price", op("$first", s("$price"))),
					domain.E("order_details", op("$first", s("$order_details"))),
					domain.E("buyer_details", op("$first", s("$buyer_details"))),
				)),
				stage("$addFields", domain.Doc(
					domain.E("order_count", op("$size", op("$ifNull", domain.Array(s("$order_details"), domain.Array())))),
					domain.E("buyer_count", op("$size", op("$ifNull", domain.Array(s("$buyer_details"), domain.Array())))),
				)),
				stage("$project", include("product_id", "productName", "category", "price", "order_count", "buyer_count", "buyer_details.username", "buyer_details.email")),
			},
		},
	}
}
