package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/intelliject/intelliject/internal/core/domain"
)

func newPYQRepoWithMock(t *testing.T) (*PYQRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &PYQRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestListBySubjectPreservesInsertionOrder(t *testing.T) {
	repo, mock, done := newPYQRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "subject", "question", "sub_topic", "marks", "year", "semester", "branch", "unit"}).
		AddRow(1, "CNS", "What is a firewall?", "Firewalls", 5.0, "2023", "VI", "CSE", "3").
		AddRow(2, "CNS", "Explain RSA.", "Cryptography", 10.0, "2022", "VI", "CSE", "2")

	mock.ExpectQuery("SELECT id, subject, question, sub_topic").
		WithArgs("CNS").
		WillReturnRows(rows)

	records, err := repo.ListBySubject(context.Background(), "CNS")
	if err != nil {
		t.Fatalf("ListBySubject() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != 1 || records[1].ID != 2 {
		t.Fatalf("order not preserved: %+v", records)
	}
	if records[0].SubTopic != "Firewalls" || records[1].Marks != 10.0 {
		t.Fatalf("fields not scanned: %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceSubjectRunsInOneTransaction(t *testing.T) {
	repo, mock, done := newPYQRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM pyqs").
		WithArgs("CNS").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO pyqs").
		WithArgs("CNS", "What is a firewall?", "Firewalls", 5.0, "2023", "", "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := repo.ReplaceSubject(context.Background(), "CNS", []domain.PYQRecord{{
		Subject:  "CNS",
		Question: "What is a firewall?",
		SubTopic: "Firewalls",
		Marks:    5,
		Year:     "2023",
	}})
	if err != nil {
		t.Fatalf("ReplaceSubject() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceSubjectRejectsInvalidRecordBeforeTouchingDB(t *testing.T) {
	repo, mock, done := newPYQRepoWithMock(t)
	defer done()

	_, err := repo.ReplaceSubject(context.Background(), "CNS", []domain.PYQRecord{
		{Subject: "CNS", Question: "Valid question?"},
		{Subject: "CNS", Question: "   "},
	})
	if !domain.IsKind(err, domain.ErrIngestion) {
		t.Fatalf("expected ingestion error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL should run for an invalid batch: %v", err)
	}
}

func TestReplaceSubjectRejectsSubjectMismatch(t *testing.T) {
	repo, mock, done := newPYQRepoWithMock(t)
	defer done()

	_, err := repo.ReplaceSubject(context.Background(), "CNS", []domain.PYQRecord{
		{Subject: "DBMS", Question: "What is a join?"},
	})
	if !domain.IsKind(err, domain.ErrIngestion) {
		t.Fatalf("expected ingestion error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL should run for a mismatched batch: %v", err)
	}
}

func TestReplaceSubjectRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, done := newPYQRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM pyqs").
		WithArgs("CNS").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO pyqs").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := repo.ReplaceSubject(context.Background(), "CNS", []domain.PYQRecord{
		{Subject: "CNS", Question: "What is a firewall?"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHistoryAppendAndListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	repo := &HistoryRepository{db: db}

	mock.ExpectExec("INSERT INTO pdf_history").
		WithArgs(sqlmock.AnyArg(), "unit3.pdf", "CNS", 12, 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Append(context.Background(), domain.HistoryEntry{
		Filename: "unit3.pdf",
		Subject:  "CNS",
		Pages:    12,
		Matched:  7,
	}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "filename", "subject", "pages", "matched", "created_at"}).
		AddRow("b2c3", "unit4.pdf", "CNS", 8, 3, now).
		AddRow("a1b2", "unit3.pdf", "CNS", 12, 7, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, filename, subject, pages, matched, created_at").
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := repo.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Filename != "unit4.pdf" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHistoryListRecentDefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	repo := &HistoryRepository{db: db}

	mock.ExpectQuery("SELECT id, filename, subject, pages, matched, created_at").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "filename", "subject", "pages", "matched", "created_at"}))

	entries, err := repo.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
