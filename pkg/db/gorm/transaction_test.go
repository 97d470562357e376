package gorm

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.Exec(`CREATE TABLE items (id TEXT PRIMARY KEY);`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func countItems(t *testing.T, ctx context.Context, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := Conn(ctx, conn).Table("items").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestExecuteTransaction_CommitsAndRollsBack(t *testing.T) {
	conn := openSQLite(t)
	tm := NewTransactionManager(conn)
	ctx := context.Background()

	err := tm.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if !InTransaction(txCtx) {
			t.Errorf("expected ctx to carry the transaction")
		}
		return Conn(txCtx, conn).Exec(`INSERT INTO items (id) VALUES ('a')`).Error
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := countItems(t, ctx, conn); got != 1 {
		t.Fatalf("after commit count = %d, want 1", got)
	}

	boom := errors.New("boom")
	err = tm.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := Conn(txCtx, conn).Exec(`INSERT INTO items (id) VALUES ('b')`).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if got := countItems(t, ctx, conn); got != 1 {
		t.Fatalf("after rollback count = %d, want 1", got)
	}
}

func TestExecuteTransaction_JoinsEnclosing(t *testing.T) {
	conn := openSQLite(t)
	tm := NewTransactionManager(conn)
	ctx := context.Background()

	err := tm.ExecuteTransaction(ctx, func(outer context.Context) error {
		return tm.ExecuteTransaction(outer, func(inner context.Context) error {
			if Conn(inner, conn) != Conn(outer, conn) {
				t.Errorf("nested call should reuse the outer transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested: %v", err)
	}
}
