package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/ports"
)

type SeedOptions struct {
	// Drop removes the sample collections before they are ensured.
	Drop bool
	// Data inserts the sample documents after the collections exist.
	Data bool
}

type SeedReport struct {
	Dropped  []string
	Outcomes []domain.Outcome
	Inserted map[string]int
}

// SeedService provisions the sample collections with their catalog
// validators and fills them with demo data.
type SeedService struct {
	schema SchemaOperator
	store  ports.SeedStore
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewSeedService(schema SchemaOperator, store ports.SeedStore, logger *zap.SugaredLogger) *SeedService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SeedService{schema: schema, store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SeedService) Run(ctx context.Context, opts SeedOptions) (SeedReport, error) {
	entries, err := SampleCatalog()
	if err != nil {
		return SeedReport{}, err
	}

	report := SeedReport{Inserted: map[string]int{}}
	if opts.Drop {
		report.Dropped = s.drop(ctx, entries)
	}

	outcomes, err := s.ensure(ctx, entries)
	if err != nil {
		return report, err
	}
	report.Outcomes = outcomes

	if !opts.Data {
		return report, nil
	}
	data := SampleData(s.now())
	for _, batch := range data.Batches() {
		if err := s.store.InsertMany(ctx, batch.Collection, batch.Docs); err != nil {
			return report, fmt.Errorf("seed %s: %w", batch.Collection, err)
		}
		report.Inserted[batch.Collection] = len(batch.Docs)
		s.logger.Infow("sample documents inserted", "collection", batch.Collection, "count", len(batch.Docs))
	}
	return report, nil
}

// drop failures are logged and ignored; the collection may simply not exist.
func (s *SeedService) drop(ctx context.Context, entries []CatalogEntry) []string {
	var (
		mu      sync.Mutex
		dropped []string
		g       errgroup.Group
	)
	for _, entry := range entries {
		g.Go(func() error {
			if err := s.store.DropCollection(ctx, entry.Collection); err != nil {
				s.logger.Warnw("drop collection failed", "collection", entry.Collection, "error", err)
				return nil
			}
			mu.Lock()
			dropped = append(dropped, entry.Collection)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return dropped
}

func (s *SeedService) ensure(ctx context.Context, entries []CatalogEntry) ([]domain.Outcome, error) {
	outcomes := make([]domain.Outcome, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		g.Go(func() error {
			out, err := s.schema.EnsureCollection(gctx, entry.Collection, entry.Validator)
			if domain.IsAlreadyExists(err) {
				out, err = domain.Outcome{Kind: domain.OutcomeAlreadyExists, Collection: entry.Collection}, nil
			}
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// SeedBatch is the documents inserted into one collection.
type SeedBatch struct {
	Collection string
	Docs       []any
}

type SampleDataset struct {
	Details   []domain.UserDetails
	Orders    []domain.Order
	Relations []domain.UserRelation
	Users     []domain.User
	Products  []domain.Product
}

// Batches returns the dataset in insertion order. Users come after the
// documents they reference.
func (d SampleDataset) Batches() []SeedBatch {
	return []SeedBatch{
		{Collection: domain.CollectionUserDetails, Docs: toAny(d.Details)},
		{Collection: domain.CollectionOrders, Docs: toAny(d.Orders)},
		{Collection: domain.CollectionUserRelations, Docs: toAny(d.Relations)},
		{Collection: domain.CollectionUsers, Docs: toAny(d.Users)},
		{Collection: domain.CollectionProducts, Docs: toAny(d.Products)},
	}
}

func toAny[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// SampleData builds two users with details, a friend relation each way,
// four orders and the product list the orders reference.
func SampleData(now time.Time) SampleDataset {
	prefs := domain.UserPreferences{Newsletter: true, Notifications: "email"}
	details := []domain.UserDetails{
		{ID: primitive.NewObjectID(), UserID: 101, Address: "16-1 Dayou Rd, Taoyuan District, Taoyuan City", Phone: "0912345678", Preferences: prefs},
		{ID: primitive.NewObjectID(), UserID: 102, Address: "10 Xiamen St, Zhongzheng District, Taipei City", Phone: "0912345677", Preferences: prefs},
	}

	keyboard := domain.OrderItem{ProductID: 203, ProductName: "Keyboard", Quantity: 1, Price: 100}
	orders := []domain.Order{
		{
			ID: primitive.NewObjectID(), OrderID: 1, UserID: 101,
			Items: []domain.OrderItem{
				{ProductID: 201, ProductName: "Laptop", Quantity: 1, Price: 1200},
				{ProductID: 202, ProductName: "Mouse", Quantity: 1, Price: 25},
			},
			Total: 1225, OrderDate: now,
		},
		{ID: primitive.NewObjectID(), OrderID: 2, UserID: 101, Items: []domain.OrderItem{keyboard}, Total: 100, OrderDate: now},
		{
			ID: primitive.NewObjectID(), OrderID: 3, UserID: 102,
			Items: []domain.OrderItem{{ProductID: 204, ProductName: "Screen", Quantity: 1, Price: 25000}},
			Total: 25000, OrderDate: now,
		},
		{ID: primitive.NewObjectID(), OrderID: 4, UserID: 102, Items: []domain.OrderItem{keyboard}, Total: 100, OrderDate: now},
	}

	relations := []domain.UserRelation{
		{ID: primitive.NewObjectID(), UserID: 101, RelatedUserID: 102, RelationType: "friend", CreatedAt: now},
		{ID: primitive.NewObjectID(), UserID: 102, RelatedUserID: 101, RelationType: "friend", CreatedAt: now},
	}

	users := []domain.User{
		{
			ID: primitive.NewObjectID(), UserID: 101, Username: "john_doe", Email: "john@example.com",
			DetailsID:   details[0].ID,
			OrderIDs:    []primitive.ObjectID{orders[0].ID, orders[1].ID},
			RelationIDs: []primitive.ObjectID{relations[0].ID},
		},
		{
			ID: primitive.NewObjectID(), UserID: 102, Username: "naruto", Email: "naruto@example.com",
			DetailsID:   details[1].ID,
			OrderIDs:    []primitive.ObjectID{orders[2].ID, orders[3].ID},
			RelationIDs: []primitive.ObjectID{relations[1].ID},
		},
	}

	products := []domain.Product{
		{ID: primitive.NewObjectID(), ProductID: 201, ProductName: "Laptop", Category: "Electronics", Price: 1200},
		{ID: primitive.NewObjectID(), ProductID: 202, ProductName: "Mouse", Category: "Electronics", Price: 25},
		{ID: primitive.NewObjectID(), ProductID: 203, ProductName: "Keyboard", Category: "Electronics", Price: 100},
		{ID: primitive.NewObjectID(), ProductID: 204, ProductName: "Screen", Category: "Electronics", Price: 25000},
	}

	return SampleDataset{Details: details, Orders: orders, Relations: relations, Users: users, Products: products}
}
