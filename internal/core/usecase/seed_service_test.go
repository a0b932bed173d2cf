package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/memory"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

type failingDropStore struct {
	*memory.Engine
}

func (s failingDropStore) DropCollection(context.Context, string) error {
	return errors.New("ns not found")
}

func TestSeedServiceCreatesSampleCollections(t *testing.T) {
	engine := memory.NewEngine()
	svc := NewSeedService(NewSchemaManager(engine), engine, nil)

	report, err := svc.Run(context.Background(), SeedOptions{Data: true})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(report.Outcomes) != len(SampleCollections) {
		t.Fatalf("expected %d outcomes, got %d", len(SampleCollections), len(report.Outcomes))
	}
	for i, out := range report.Outcomes {
		if out.Kind != domain.OutcomeCreated || out.Collection != SampleCollections[i] {
			t.Fatalf("unexpected outcome %d: %+v", i, out)
		}
		entry, _ := CatalogValidator(out.Collection)
		got, ok := engine.Validator(out.Collection)
		if !ok || !got.Equal(entry.Validator) {
			t.Fatalf("%s: validator not applied", out.Collection)
		}
	}

	want := map[string]int{
		domain.CollectionUsers:         2,
		domain.CollectionOrders:        4,
		domain.CollectionUserDetails:   2,
		domain.CollectionUserRelations: 2,
		domain.CollectionProducts:      4,
	}
	for coll, n := range want {
		if report.Inserted[coll] != n || engine.DocumentCount(coll) != n {
			t.Fatalf("%s: expected %d documents, report=%d engine=%d", coll, n, report.Inserted[coll], engine.DocumentCount(coll))
		}
	}
}

func TestSeedServiceSecondRunReportsAlreadyExists(t *testing.T) {
	engine := memory.NewEngine()
	svc := NewSeedService(NewSchemaManager(engine), engine, nil)

	if _, err := svc.Run(context.Background(), SeedOptions{}); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	report, err := svc.Run(context.Background(), SeedOptions{})
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	for _, out := range report.Outcomes {
		if out.Kind != domain.OutcomeAlreadyExists {
			t.Fatalf("expected already_exists, got %+v", out)
		}
	}
	if n := engine.DocumentCount(domain.CollectionUsers); n != 0 {
		t.Fatalf("expected no documents without Data, got %d", n)
	}
}

func TestSeedServiceDropRecreatesCollections(t *testing.T) {
	engine := memory.NewEngine()
	svc := NewSeedService(NewSchemaManager(engine), engine, nil)

	if _, err := svc.Run(context.Background(), SeedOptions{Data: true}); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	report, err := svc.Run(context.Background(), SeedOptions{Drop: true, Data: true})
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if len(report.Dropped) != len(SampleCollections) {
		t.Fatalf("expected all sample collections dropped, got %v", report.Dropped)
	}
	for _, out := range report.Outcomes {
		if out.Kind != domain.OutcomeCreated {
			t.Fatalf("expected created after drop, got %+v", out)
		}
	}
	if n := engine.DocumentCount(domain.CollectionOrders); n != 4 {
		t.Fatalf("expected 4 orders after reseed, got %d", n)
	}
}

func TestSeedServiceIgnoresDropErrors(t *testing.T) {
	engine := memory.NewEngine()
	svc := NewSeedService(NewSchemaManager(engine), failingDropStore{engine}, nil)

	report, err := svc.Run(context.Background(), SeedOptions{Drop: true})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(report.Dropped) != 0 {
		t.Fatalf("expected nothing reported as dropped, got %v", report.Dropped)
	}
	if len(report.Outcomes) != len(SampleCollections) {
		t.Fatalf("expected ensure to run after failed drops, got %v", report.Outcomes)
	}
}

func TestSeedServiceTreatsCreateRaceAsExisting(t *testing.T) {
	engine := memory.NewEngine()
	engine.OnCreate = func(_ context.Context, name string) error {
		if name == domain.CollectionOrders {
			return domain.RejectedAlreadyExists(errors.New("Collection TestDB.Orders already exists."))
		}
		return nil
	}
	svc := NewSeedService(NewSchemaManager(engine), engine, nil)

	report, err := svc.Run(context.Background(), SeedOptions{})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if report.Outcomes[1].Kind != domain.OutcomeAlreadyExists || report.Outcomes[1].Collection != domain.CollectionOrders {
		t.Fatalf("expected Orders already_exists, got %+v", report.Outcomes[1])
	}
}

func TestSeedServiceStopsOnUnavailableEngine(t *testing.T) {
	engine := memory.NewEngine()
	engine.OnList = func(context.Context) error {
		return domain.Unavailable(errors.New("server selection timeout"))
	}
	svc := NewSeedService(NewSchemaManager(engine), engine, nil)

	_, err := svc.Run(context.Background(), SeedOptions{Data: true})
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if engine.DocumentCount(domain.CollectionUsers) != 0 {
		t.Fatal("expected no data inserted after a failed ensure")
	}
}

func TestSampleDataReferencesAreConsistent(t *testing.T) {
	data := SampleData(fixedTime)
	if data.Users[0].DetailsID != data.Details[0].ID || data.Users[1].DetailsID != data.Details[1].ID {
		t.Fatal("users must reference their details documents")
	}
	if data.Users[1].OrderIDs[0] != data.Orders[2].ID {
		t.Fatal("users must reference their orders")
	}
	for _, o := range data.Orders {
		var sum float64
		for _, item := range o.Items {
			sum += item.Price * float64(item.Quantity)
		}
		if sum != o.Total {
			t.Fatalf("order %d total %v does not match items %v", o.OrderID, o.Total, sum)
		}
	}
}
