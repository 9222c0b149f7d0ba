package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"trendsetl/internal/core/trend"
	"trendsetl/internal/modkit/repokit"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/store"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeTag struct{}

func (fakeTag) String() string      { return "INSERT" }
func (fakeTag) RowsAffected() int64 { return 0 }

type fakeRow struct {
	val *time.Time
	err error
}

func (r fakeRow) Scan(dst ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dst[0].(**time.Time)) = r.val
	return nil
}

type fakeDB struct {
	row     fakeRow
	execErr error

	execs     []string
	args      [][]any
	txs       int
	committed bool
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	if f.execErr != nil && strings.HasPrefix(sql, "INSERT") {
		return nil, f.execErr
	}
	return fakeTag{}, nil
}
func (f *fakeDB) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, &pgconn.PgError{Code: "42P01"}
}
func (f *fakeDB) QueryRow(context.Context, string, ...any) store.Row { return f.row }
func (f *fakeDB) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error {
	f.txs++
	if err := fn(f); err != nil {
		return err
	}
	f.committed = true
	return nil
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, "trends_data", 0); err == nil {
		t.Fatal("nil db accepted")
	}
	if _, err := New(&fakeDB{}, "public.trends", 0); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("err = %v", err)
	}
}

func TestLatestDate(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	w, _ := New(&fakeDB{row: fakeRow{val: &d}}, "trends_data", 0)
	got, err := w.LatestDate(context.Background())
	if err != nil || got != trend.At(civil.Date{Year: 2024, Month: 6, Day: 5}) {
		t.Fatalf("got %v, %v", got, err)
	}

	w, _ = New(&fakeDB{}, "trends_data", 0)
	if got, err := w.LatestDate(context.Background()); err != nil || got.Known {
		t.Fatalf("null max: %v, %v", got, err)
	}
}

func TestLatestDate_MissingTable(t *testing.T) {
	t.Parallel()

	w, _ := New(&fakeDB{row: fakeRow{err: &pgconn.PgError{Code: "42P01"}}}, "trends_data", 0)
	if got, err := w.LatestDate(context.Background()); err != nil || got.Known {
		t.Fatalf("got %v, %v", got, err)
	}

	w, _ = New(&fakeDB{row: fakeRow{err: errors.New("conn refused")}}, "trends_data", 0)
	if _, err := w.LatestDate(context.Background()); perr.CodeOf(err) != perr.ErrorCodeDB {
		t.Fatalf("err = %v", err)
	}
}

func TestLatestByMarket_MissingTable(t *testing.T) {
	t.Parallel()

	w, _ := New(&fakeDB{}, "trends_data", 0)
	got, err := w.LatestByMarket(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestAppend_SingleTransaction(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	w, _ := New(db, "trends_data", 5*time.Second)

	recs := make([]trend.Record, insertChunk+3)
	for i := range recs {
		recs[i] = trend.Record{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Keyword: "futu", Market: "HK", GeoCode: "HK"}
	}
	n, err := w.Append(context.Background(), recs)
	if err != nil || n != len(recs) {
		t.Fatalf("Append = %d, %v", n, err)
	}
	if db.txs != 1 || !db.committed {
		t.Fatalf("txs = %d committed = %v", db.txs, db.committed)
	}
	if db.execs[0] != "SET LOCAL statement_timeout = 5000" {
		t.Fatalf("first statement = %q", db.execs[0])
	}
	var inserts int
	for i, s := range db.execs {
		if strings.HasPrefix(s, "INSERT") {
			inserts++
			if inserts == 2 && len(db.args[i]) != 3*len(trend.Columns) {
				t.Fatalf("second chunk args = %d", len(db.args[i]))
			}
		}
	}
	if inserts != 2 {
		t.Fatalf("inserts = %d", inserts)
	}
}

func TestAppend_RollsBackOnError(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execErr: &pgconn.PgError{Code: "23502", Message: "null value"}}
	w, _ := New(db, "trends_data", 0)
	n, err := w.Append(context.Background(), []trend.Record{{Keyword: "futu"}})
	if n != 0 || perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("Append = %d, %v", n, err)
	}
	if db.committed {
		t.Fatal("failed append committed")
	}
}

func TestAppend_Empty(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	w, _ := New(db, "trends_data", 0)
	if n, err := w.Append(context.Background(), nil); n != 0 || err != nil || db.txs != 0 {
		t.Fatalf("Append = %d, %v, txs %d", n, err, db.txs)
	}
}

func TestInsertStmt(t *testing.T) {
	t.Parallel()

	v := 7
	sql, args := insertStmt("trends_data", []trend.Record{{Keyword: "a", Score: &v}, {Keyword: "b"}})
	want := "INSERT INTO trends_data (date, keyword, interest_score, market, geo_code, extracted_at) VALUES " +
		"($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12)"
	if sql != want {
		t.Fatalf("sql = %q", sql)
	}
	if len(args) != 12 || args[2] != int64(7) || args[8] != nil {
		t.Fatalf("args = %v", args)
	}
}

func TestDDL(t *testing.T) {
	t.Parallel()

	stmts := DDL("trends_data")
	if len(stmts) != 1+len(trend.Columns) {
		t.Fatalf("stmts = %d", len(stmts))
	}
	if !strings.Contains(stmts[0], "interest_score bigint") {
		t.Fatalf("create = %q", stmts[0])
	}
	if stmts[len(stmts)-1] != "ALTER TABLE trends_data ADD COLUMN IF NOT EXISTS extracted_at timestamptz" {
		t.Fatalf("alter = %q", stmts[len(stmts)-1])
	}
}
