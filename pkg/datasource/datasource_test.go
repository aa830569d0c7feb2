package datasource

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/atrium/pkg/panel"
)

func collect(t *testing.T, ctx context.Context, q panel.Queryable) []panel.Record {
	t.Helper()

	cur, err := q.Cursor(ctx)
	if err != nil {
		t.Fatalf("Cursor() failed: %v", err)
	}
	defer cur.Close()

	var out []panel.Record
	for cur.Next() {
		out = append(out, cur.Record())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	return out
}

// TestSlice_FiltersAndRestart tests filtering and restarting iteration.
func TestSlice_FiltersAndRestart(t *testing.T) {
	src := NewSlice(
		panel.Record{"id": 1, "status": "active"},
		panel.Record{"id": 2, "status": "draft"},
		panel.Record{"id": 3, "status": "active"},
	)

	all := collect(t, context.Background(), src)
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	ctx := panel.WithQueryParams(context.Background(), url.Values{"filters[status]": {"active"}})
	filtered := collect(t, ctx, src)
	var ids []any
	for _, r := range filtered {
		ids = append(ids, r["id"])
	}
	if diff := cmp.Diff([]any{1, 3}, ids); diff != "" {
		t.Errorf("filtered ids mismatch (-want +got):\n%s", diff)
	}

	if src.Opens() != 2 {
		t.Errorf("Opens() = %d, want 2", src.Opens())
	}
}

// TestSlice_CancelledContext tests that iteration stops on cancellation.
func TestSlice_CancelledContext(t *testing.T) {
	src := NewSlice(panel.Record{"id": 1})

	ctx, cancel := context.WithCancel(context.Background())
	cur, err := src.Cursor(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	if cur.Next() {
		t.Error("Next() returned true after cancellation")
	}
	if cur.Err() == nil {
		t.Error("expected context error")
	}
}

// TestFilters tests extraction of filter parameters.
func TestFilters(t *testing.T) {
	got := Filters(url.Values{
		"filters[name]":     {"Lamp"},
		"filters[category]": {"2"},
		"filters[empty]":    {""},
		"filters[]":         {"x"},
		"page":              {"3"},
	})
	want := map[string]string{"name": "Lamp", "category": "2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Filters() mismatch (-want +got):\n%s", diff)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "source.db")

	db, err := OpenSQLite(cfg)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE categories (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, category_id INTEGER, active INTEGER)`,
		`INSERT INTO categories (id, name) VALUES (1, 'Lighting'), (2, 'Seating')`,
		`INSERT INTO items (id, name, category_id, active) VALUES
			(1, 'Lamp', 1, 1), (2, 'Chair', 2, 0), (3, 'Bulb', 1, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func itemsTable() Table {
	return Table{
		Name: "items",
		Columns: []Column{
			{Name: "id"},
			{Name: "name"},
			{Name: "active"},
			{Name: "category", Expr: `"items"."category_id"`},
			{Name: "category.name", Expr: `"categories"."name"`},
		},
		Joins:       []string{`LEFT JOIN "categories" ON "categories"."id" = "items"."category_id"`},
		DefaultSort: "id",
	}
}

// TestSQL_Cursor tests streaming, filtering and sorting of a table.
func TestSQL_Cursor(t *testing.T) {
	db := openTestDB(t)

	src, err := NewSQL(db, itemsTable())
	if err != nil {
		t.Fatalf("NewSQL() failed: %v", err)
	}

	tests := []struct {
		name   string
		params url.Values
		want   []string
	}{
		{"default sort", nil, []string{"Lamp", "Chair", "Bulb"}},
		{"sort by name desc", url.Values{"sort": {"name"}, "order": {"DESC"}}, []string{"Lamp", "Chair", "Bulb"}},
		{"sort by name", url.Values{"sort": {"name"}}, []string{"Bulb", "Chair", "Lamp"}},
		{"unknown sort column ignored", url.Values{"sort": {"name; DROP TABLE items"}}, []string{"Lamp", "Chair", "Bulb"}},
		{"filter by relation", url.Values{"filters[category]": {"1"}}, []string{"Lamp", "Bulb"}},
		{"unknown filter ignored", url.Values{"filters[secret]": {"x"}}, []string{"Lamp", "Chair", "Bulb"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := panel.WithQueryParams(context.Background(), tt.params)

			var names []string
			for _, rec := range collect(t, ctx, src) {
				names = append(names, rec["name"].(string))
			}
			if diff := cmp.Diff(tt.want, names); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestSQL_NestedColumns tests dotted column aliases.
func TestSQL_NestedColumns(t *testing.T) {
	db := openTestDB(t)

	src, err := NewSQL(db, itemsTable())
	if err != nil {
		t.Fatal(err)
	}

	recs := collect(t, context.Background(), src)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	v, ok := recs[1].Get("category.name")
	if !ok || v != "Seating" {
		t.Errorf(`Get("category.name") = %v, %v; want Seating`, v, ok)
	}
}

// TestNewSQL_Validation tests constructor validation.
func TestNewSQL_Validation(t *testing.T) {
	db := openTestDB(t)

	if _, err := NewSQL(nil, itemsTable()); err == nil {
		t.Error("expected error for nil db")
	}
	if _, err := NewSQL(db, Table{Columns: []Column{{Name: "id"}}}); err == nil {
		t.Error("expected error for empty table name")
	}
	if _, err := NewSQL(db, Table{Name: "items"}); err == nil {
		t.Error("expected error for missing columns")
	}
}
