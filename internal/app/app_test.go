package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/usecase"
)

func openDryRun(t *testing.T, keys ...string) *Runtime {
	t.Helper()
	rt, err := Open(context.Background(), Config{
		DryRun:      true,
		AuditDBPath: filepath.Join(t.TempDir(), "audit.sqlite"),
		APIKeys:     keys,
	}, nil)
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestDryRunRuntimeRecordsSchemaChanges(t *testing.T) {
	ctx := context.Background()
	rt := openDryRun(t)

	entry, err := usecase.CatalogValidator("T_Person")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	out, err := rt.Schema.EnsureCollection(ctx, entry.Collection, entry.Validator)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if out.Kind != domain.OutcomeCreated {
		t.Fatalf("expected created, got %s", out.Kind)
	}

	changes, err := rt.Audit.List(ctx, domain.SchemaChangeFilter{Collection: "T_Person"})
	if err != nil {
		t.Fatalf("list changes: %v", err)
	}
	if len(changes) != 1 || changes[0].Outcome != "created" || changes[0].EventID == "" {
		t.Fatalf("unexpected audit trail: %+v", changes)
	}
}

func TestDryRunSeed(t *testing.T) {
	rt := openDryRun(t)
	report, err := rt.Seed.Run(context.Background(), usecase.SeedOptions{Drop: true, Data: true})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(report.Outcomes) != len(usecase.SampleCollections) {
		t.Fatalf("expected %d outcomes, got %d", len(usecase.SampleCollections), len(report.Outcomes))
	}
}

func TestDryRunHasNoReports(t *testing.T) {
	rt := openDryRun(t)
	if _, err := rt.Reports(); !errors.Is(err, ErrReportsUnavailable) {
		t.Fatalf("expected ErrReportsUnavailable, got %v", err)
	}
}

func TestServerRequiresBootstrapKey(t *testing.T) {
	rt := openDryRun(t, "secret-token")
	server, closer := rt.NewServer(":0")
	t.Cleanup(func() { _ = closer.Close() })

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/collections", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPut, "/v1/collections/Users/validator", strings.NewReader(`{"$jsonSchema":{"bsonType":"object"}}`))
	req.Header.Set("X-API-Key", "secret-token")
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `mongoschema_schema_operations_total{operation="ensure_collection",outcome="created"} 1`) {
		t.Fatalf("operation not counted:\n%s", rec.Body.String())
	}
}

func TestResolveConfigUsesSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appsettings.json")
	cfg, err := resolveConfig(Config{SettingsPath: path, MongoURI: "mongodb://override:27017"}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.MongoURI != "mongodb://override:27017" || cfg.Database != DefaultDatabase {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AuditDBPath == "" {
		t.Fatal("expected default audit db path")
	}
}
