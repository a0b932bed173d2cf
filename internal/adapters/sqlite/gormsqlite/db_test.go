package gormsqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildDSNIncludesPerConnectionPragmas(t *testing.T) {
	reader := buildDSN("./db.sqlite", true)
	writer := buildDSN("./db.sqlite", false)

	checks := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=trusted_schema(OFF)",
	}
	for _, c := range checks {
		if !strings.Contains(reader, c) {
			t.Fatalf("reader dsn missing %q: %s", c, reader)
		}
		if !strings.Contains(writer, c) {
			t.Fatalf("writer dsn missing %q: %s", c, writer)
		}
	}

	if !strings.Contains(reader, "_pragma=query_only(1)") {
		t.Fatalf("reader dsn missing query_only(1): %s", reader)
	}
	if !strings.Contains(writer, "_pragma=query_only(0)") {
		t.Fatalf("writer dsn missing query_only(0): %s", writer)
	}
	if strings.Contains(reader, "_txlock") || !strings.Contains(writer, "_txlock=immediate") {
		t.Fatalf("only the writer takes immediate transactions: reader=%s writer=%s", reader, writer)
	}
}

func TestBuildDSNKeepsExistingQuery(t *testing.T) {
	dsn := buildDSN("file:audit.db?cache=shared", false)
	if !strings.HasPrefix(dsn, "file:audit.db?cache=shared&_pragma=") {
		t.Fatalf("unexpected dsn %s", dsn)
	}
}

func TestReaderCannotWrite(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "ro.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := db.WriteTX(ctx, func(tx *Tx) error {
		return tx.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)").Error
	}); err != nil {
		t.Fatalf("writer create table: %v", err)
	}
	err = db.ReadTX(ctx, func(tx *Tx) error {
		return tx.Exec("INSERT INTO t (id) VALUES (1)").Error
	})
	if err == nil {
		t.Fatal("expected the read connection to refuse writes")
	}
}
