package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// TagRepository reads the taxonomy. The search/extraction pipeline treats it
// as read-only; UpsertTags exists only for bootstrap seeding.
type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name, display_name, category, COALESCE(parent_name, ''), combo_relevant
FROM tags
ORDER BY name
`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Tag, 0)
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.Name, &t.DisplayName, &t.Category, &t.ParentName, &t.ComboRelevant); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return out, nil
}

// UpsertTags seeds the taxonomy. Parents must sort before children in the
// input so the self-referencing foreign key holds.
func (r *TagRepository) UpsertTags(ctx context.Context, tags []domain.Tag) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin taxonomy tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, t := range tags {
		var parent any
		if t.ParentName != "" {
			parent = t.ParentName
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO tags (name, display_name, category, parent_name, combo_relevant)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (name) DO UPDATE
SET display_name = EXCLUDED.display_name, category = EXCLUDED.category,
    parent_name = EXCLUDED.parent_name, combo_relevant = EXCLUDED.combo_relevant
`, t.Name, t.DisplayName, t.Category, parent, t.ComboRelevant)
		if err != nil {
			return fmt.Errorf("upsert tag %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit taxonomy tx: %w", err)
	}
	return nil
}
