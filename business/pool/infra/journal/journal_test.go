package journal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/apperror"
)

type mockLogger struct{}

func (mockLogger) Debug(context.Context, string, ...any)       {}
func (mockLogger) Debugc(context.Context, int, string, ...any) {}
func (mockLogger) Info(context.Context, string, ...any)        {}
func (mockLogger) Infoc(context.Context, int, string, ...any)  {}
func (mockLogger) Warn(context.Context, string, ...any)        {}
func (mockLogger) Warnc(context.Context, int, string, ...any)  {}
func (mockLogger) Error(context.Context, string, ...any)       {}
func (mockLogger) Errorc(context.Context, int, string, ...any) {}

type fakeExecer struct {
	sql  []string
	args [][]any
	err  error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestOpen_EmptyDSNIsNoop(t *testing.T) {
	j, err := Open(context.Background(), Config{}, mockLogger{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := j.(Noop); !ok {
		t.Fatalf("journal = %T, want Noop", j)
	}
	if err := j.Record(context.Background(), domain.NewSubmission(domain.KindSwap, "0xcc", "0xee")); err != nil {
		t.Errorf("Noop.Record: %v", err)
	}
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "postgres://%zz"}, mockLogger{})
	if !apperror.Is(err, apperror.CodeConfigurationError) {
		t.Errorf("err = %v, want CONFIGURATION_ERROR", err)
	}
}

func TestStore_Record(t *testing.T) {
	db := &fakeExecer{}
	s := New(db, mockLogger{})

	sub := domain.NewSubmission(domain.KindWithdraw, "0xcc", "0xee")
	sub.Args["share_amount"] = "500"
	sub.Status = domain.StatusConfirmed
	sub.TxHash = "0x01"
	sub.Block = 42

	if err := s.Record(context.Background(), sub); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(db.sql) != 1 || !strings.Contains(db.sql[0], "INSERT INTO pool_submissions") {
		t.Fatalf("sql = %v", db.sql)
	}

	args := db.args[0]
	if args[0] != sub.ID || args[1] != "withdraw" || args[8] != "confirmed" {
		t.Errorf("args = %v", args)
	}
	if b := args[7].(*int64); b == nil || *b != 42 {
		t.Errorf("block = %v", args[7])
	}
	if e := args[9].(*string); e != nil {
		t.Errorf("error column = %q, want NULL", *e)
	}
}

func TestStore_RecordFailure(t *testing.T) {
	s := New(&fakeExecer{err: errors.New("connection reset")}, mockLogger{})

	err := s.Record(context.Background(), domain.NewSubmission(domain.KindSwap, "0xcc", "0xee"))
	if !apperror.Is(err, apperror.CodeJournalWriteFailed) {
		t.Errorf("err = %v, want JOURNAL_WRITE_FAILED", err)
	}
}

func TestStore_Migrate(t *testing.T) {
	db := &fakeExecer{}
	if err := New(db, mockLogger{}).Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(db.sql[0], "CREATE TABLE IF NOT EXISTS pool_submissions") {
		t.Errorf("sql = %s", db.sql[0])
	}
}
