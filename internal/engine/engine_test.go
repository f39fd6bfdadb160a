package engine

import (
	"context"
	"testing"

	"github.com/Origin-Inc/tableflow/internal/tabular"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

var testSchema = []tabular.Column{
	{Name: "id", Type: tabular.TypeInteger},
	{Name: "name", Type: tabular.TypeText},
	{Name: "score", Type: tabular.TypeReal},
}

func TestCreateTableFromRows(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	rows := [][]string{
		{"1", "alice", "9.5"},
		{"2", "bob", "7.25"},
	}
	if err := e.CreateTableFromRows(ctx, "scores", testSchema, rows); err != nil {
		t.Fatalf("CreateTableFromRows: %v", err)
	}

	exists, err := e.HasTable(ctx, "scores")
	if err != nil {
		t.Fatalf("HasTable: %v", err)
	}
	if !exists {
		t.Fatal("HasTable = false after create")
	}

	count, err := e.TableRowCount(ctx, "scores")
	if err != nil {
		t.Fatalf("TableRowCount: %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}
}

func TestCreateTableTwiceFails(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CreateTableFromRows(ctx, "dup", testSchema, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := e.CreateTableFromRows(ctx, "dup", testSchema, nil); err == nil {
		t.Fatal("second create returned nil error")
	}
}

func TestAppendRowsOrderAndNulls(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CreateTableFromRows(ctx, "people", testSchema, [][]string{{"1", "alice", "1.5"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.AppendRows(ctx, "people", testSchema, [][]string{
		{"2", "bob", ""},
		{"3", "carol", "3.5"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows, err := e.Query(ctx, `SELECT "id", "score" FROM "people" ORDER BY rowid`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	var ids []int64
	var nullScores int
	for rows.Next() {
		var id int64
		var score *float64
		if err := rows.Scan(&id, &score); err != nil {
			t.Fatalf("scan: %v", err)
		}
		ids = append(ids, id)
		if score == nil {
			nullScores++
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}
	if nullScores != 1 {
		t.Errorf("null scores = %d, want 1 (empty cell binds NULL)", nullScores)
	}
}

func TestAppendRowsWidthMismatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CreateTableFromRows(ctx, "strict", testSchema, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.AppendRows(ctx, "strict", testSchema, [][]string{{"1", "too-few"}}); err == nil {
		t.Fatal("append with wrong width returned nil error")
	}

	count, err := e.TableRowCount(ctx, "strict")
	if err != nil {
		t.Fatalf("TableRowCount: %v", err)
	}
	if count != 0 {
		t.Errorf("row count = %d, want 0 after rolled-back append", count)
	}
}

func TestDropTable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CreateTableFromRows(ctx, "gone", testSchema, [][]string{{"1", "x", "2"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.DropTable(ctx, "gone"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}

	exists, err := e.HasTable(ctx, "gone")
	if err != nil {
		t.Fatalf("HasTable: %v", err)
	}
	if exists {
		t.Error("table still exists after drop")
	}

	// Dropping a missing table is a no-op.
	if err := e.DropTable(ctx, "never-existed"); err != nil {
		t.Errorf("DropTable on missing table: %v", err)
	}
}

func TestQuoteIdent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	schema := []tabular.Column{{Name: `weird "name"`, Type: tabular.TypeText}}
	if err := e.CreateTableFromRows(ctx, `tab"le`, schema, [][]string{{"v"}}); err != nil {
		t.Fatalf("create with quoted identifiers: %v", err)
	}

	count, err := e.TableRowCount(ctx, `tab"le`)
	if err != nil {
		t.Fatalf("TableRowCount: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}
