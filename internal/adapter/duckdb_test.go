package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDuckDBAdapter_ConnectInMemory(t *testing.T) {
	ctx := context.Background()
	adapter := NewDuckDBAdapter()

	err := adapter.Connect(ctx, Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to connect to in-memory DuckDB: %v", err)
	}
	defer adapter.Close()
}

func TestDuckDBAdapter_ConnectFileBased(t *testing.T) {
	ctx := context.Background()
	adapter := NewDuckDBAdapter()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.duckdb")

	err := adapter.Connect(ctx, Config{Path: dbPath})
	if err != nil {
		t.Fatalf("failed to connect to file-based DuckDB: %v", err)
	}
	defer adapter.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestDuckDBAdapter_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	adapter := NewDuckDBAdapter()

	if err := adapter.Connect(ctx, Config{Path: ":memory:"}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer adapter.Close()

	// Shape mirrors a bronze entity extract
	err := adapter.Exec(ctx, `
		CREATE TABLE table_entity (
			guid VARCHAR,
			name VARCHAR,
			type_name VARCHAR
		)
	`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	err = adapter.Exec(ctx, `
		INSERT INTO table_entity VALUES
			('g1', 'customers', 'Table'),
			('g2', 'orders', 'Table')
	`)
	if err != nil {
		t.Fatalf("failed to insert data: %v", err)
	}

	rows, err := adapter.Query(ctx, `SELECT guid, name FROM table_entity ORDER BY guid`)
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	defer rows.Close()

	var got []string
	for rows.Next() {
		var guid, name string
		if err := rows.Scan(&guid, &name); err != nil {
			t.Fatalf("failed to scan row: %v", err)
		}
		got = append(got, guid+"/"+name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("error iterating rows: %v", err)
	}

	want := []string{"g1/customers", "g2/orders"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDuckDBAdapter_DialectName(t *testing.T) {
	adapter := NewDuckDBAdapter()
	if adapter.DialectName() != "duckdb" {
		t.Errorf("expected duckdb, got %s", adapter.DialectName())
	}
}
