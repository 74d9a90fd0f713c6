package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

func TestReplaceForCardMaintainsCacheInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewCardTagStore(db, 0.7)
	now := time.Now().UTC()
	tags := []domain.CardTag{
		{CardID: "c1", TagName: "removal", Confidence: 0.9, Source: domain.TagSourceModel, Model: "m", CreatedAt: now},
		{CardID: "c1", TagName: "targeted", Confidence: 0.8, Source: domain.TagSourceModel, Model: "m", CreatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM card_tags").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO card_tags").
		WithArgs("c1", "removal", 0.9, "model", "m", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO card_tags").
		WithArgs("c1", "targeted", 0.8, "model", "m", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Healthy confidence: cache update only, no review upsert.
	mock.ExpectExec("UPDATE cards").
		WithArgs("c1", sqlmock.AnyArg(), sqlmock.AnyArg(), false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.ReplaceForCard(context.Background(), "c1", tags); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceForCardUpsertsReviewEntryWhenConfidenceLow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewCardTagStore(db, 0.7)
	now := time.Now().UTC()
	tags := []domain.CardTag{
		{CardID: "c1", TagName: "combo", Confidence: 0.5, Source: domain.TagSourceModel, Model: "m", CreatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM card_tags").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO card_tags").
		WithArgs("c1", "combo", 0.5, "model", "m", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE cards").
		WithArgs("c1", sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// avg 0.5 against threshold 0.7 -> low_average_confidence, priority ~20
	mock.ExpectExec("INSERT INTO review_queue").
		WithArgs("c1", domain.ReviewReasonLowAverage, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.ReplaceForCard(context.Background(), "c1", tags); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceForCardRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewCardTagStore(db, 0.7)
	now := time.Now().UTC()
	tags := []domain.CardTag{
		{CardID: "c1", TagName: "removal", Confidence: 0.9, Source: domain.TagSourceModel, Model: "m", CreatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM card_tags").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO card_tags").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	if err := store.ReplaceForCard(context.Background(), "c1", tags); err == nil {
		t.Fatalf("expected insert failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListForCard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewCardTagStore(db, 0.7)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"card_id", "tag_name", "confidence", "source", "model", "created_at"}).
		AddRow("c1", "burn", 0.9, "model", "m", now).
		AddRow("c1", "removal", 0.8, "manual", "", now)
	mock.ExpectQuery("SELECT card_id, tag_name, confidence, source, model, created_at").
		WithArgs("c1").
		WillReturnRows(rows)

	tags, err := store.ListForCard(context.Background(), "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[1].Source != domain.TagSourceManual {
		t.Fatalf("expected manual source, got %s", tags[1].Source)
	}
}
