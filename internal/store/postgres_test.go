package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB interprets the handful of statements PostgresPersister issues.
type fakeDB struct {
	rows  map[string]string
	order []string
	execs []string
	err   error
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[string]string)}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	if db.err != nil {
		return pgconn.CommandTag{}, db.err
	}
	if strings.Contains(sql, "INSERT INTO notebooks") {
		name, content := args[0].(string), args[1].(string)
		if _, ok := db.rows[name]; !ok {
			db.order = append(db.order, name)
		}
		db.rows[name] = content
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (db *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if db.err != nil {
		return nil, db.err
	}
	names := append([]string(nil), db.order...)
	return &fakeRows{values: names, pos: -1}, nil
}

func (db *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if db.err != nil {
		return fakeRow{err: db.err}
	}
	content, ok := db.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: content}
}

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.value
	return nil
}

// fakeRows yields one string column per row.
type fakeRows struct {
	values []string
	pos    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return []any{r.values[r.pos]}, nil }
func (r *fakeRows) RawValues() [][]byte                          { return [][]byte{[]byte(r.values[r.pos])} }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.values)
}

func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.values[r.pos]
	return nil
}

func TestPostgresPersister_SaveLoad(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	p := NewPostgresPersister(db)

	if err := p.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if !strings.Contains(db.execs[0], "CREATE TABLE IF NOT EXISTS notebooks") {
		t.Errorf("schema statement = %q", db.execs[0])
	}

	if _, found, err := p.Load(ctx, "default"); err != nil || found {
		t.Fatalf("Load(missing) = found %v, err %v", found, err)
	}

	if err := p.Save(ctx, "default", "first"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := p.Save(ctx, "default", "second"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	content, found, err := p.Load(ctx, "default")
	if err != nil || !found || content != "second" {
		t.Errorf("Load = %q, %v, %v; want \"second\", true, nil", content, found, err)
	}
	if p.Backend() != "postgres" {
		t.Errorf("Backend() = %q", p.Backend())
	}
}

func TestPostgresPersister_List(t *testing.T) {
	ctx := context.Background()
	p := NewPostgresPersister(newFakeDB())
	for _, n := range []string{"default", "ideas", "todo"} {
		if err := p.Save(ctx, n, ""); err != nil {
			t.Fatalf("Save(%q): %v", n, err)
		}
	}

	names, err := p.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !sort.StringsAreSorted(names) || strings.Join(names, ",") != "default,ideas,todo" {
		t.Errorf("List() = %v", names)
	}
}

func TestSharedPostgresPersister(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	p := NewSharedPostgresPersister(db)

	if err := p.Save(ctx, "default", "shared text"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(db.rows) != 1 || db.rows[SharedContentRow] != "shared text" {
		t.Errorf("rows = %v, want only %q", db.rows, SharedContentRow)
	}

	content, found, err := p.Load(ctx, "any-name")
	if err != nil || !found || content != "shared text" {
		t.Errorf("Load = %q, %v, %v; want the shared row", content, found, err)
	}

	names, err := p.List(ctx)
	if err != nil || len(names) != 0 {
		t.Errorf("List() = %v, %v; want nothing", names, err)
	}
}

func TestPostgresPersister_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	db := newFakeDB()
	db.err = boom
	p := NewPostgresPersister(db)

	if err := p.EnsureSchema(ctx); !errors.Is(err, boom) {
		t.Errorf("EnsureSchema error = %v", err)
	}
	if _, _, err := p.Load(ctx, "default"); !errors.Is(err, boom) {
		t.Errorf("Load error = %v", err)
	}
	if err := p.Save(ctx, "default", "x"); !errors.Is(err, boom) {
		t.Errorf("Save error = %v", err)
	}
	if _, err := p.List(ctx); !errors.Is(err, boom) {
		t.Errorf("List error = %v", err)
	}
}

func TestStore_WithPostgresPersister(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := New(100, NewPostgresPersister(db), nil, nil)

	created, err := s.Open(ctx, "default")
	if err != nil || !created {
		t.Fatalf("Open = %v, %v", created, err)
	}
	res := s.Write(ctx, "default", "persisted")
	if res.Err != nil {
		t.Fatalf("Write: %v", res.Err)
	}
	if db.rows["default"] != "persisted" {
		t.Errorf("row content = %q", db.rows["default"])
	}
}
