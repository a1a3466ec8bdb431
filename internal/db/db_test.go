package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKey(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	if !IsDuplicateKey(dup) {
		t.Fatalf("expected wrapped 1062 to be detected")
	}
	if IsDuplicateKey(&mysql.MySQLError{Number: 1213}) {
		t.Fatalf("deadlock must not be reported as duplicate")
	}
	if IsDuplicateKey(errors.New("boom")) {
		t.Fatalf("plain error must not be reported as duplicate")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE schedules").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	wantErr := errors.New("later step failed")
	err = WithTx(context.Background(), conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(context.Background(), "UPDATE schedules SET available_seats = available_seats - 1"); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchemaAndMissingTables(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	for range Tables {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := EnsureSchema(context.Background(), conn); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	for _, table := range Tables {
		rows := sqlmock.NewRows([]string{"table_name"})
		if table != "operator_earnings" {
			rows.AddRow(table)
		}
		mock.ExpectQuery("information_schema\\.tables").WithArgs(table).WillReturnRows(rows)
	}
	missing := MissingTables(context.Background(), conn)
	if len(missing) != 1 || missing[0] != "operator_earnings" {
		t.Fatalf("unexpected missing tables %v", missing)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
