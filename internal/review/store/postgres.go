package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syndrizzle/briq/pkg/domain"
)

type Postgres struct{ DB *pgxpool.Pool }

func NewPostgres(db *pgxpool.Pool) *Postgres { return &Postgres{DB: db} }

// EnsureSchema creates the tables on startup.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, `
CREATE TABLE IF NOT EXISTS review_state(
  singleton smallint PRIMARY KEY DEFAULT 1 CHECK (singleton = 1),
  admin_address text NOT NULL,
  paused boolean NOT NULL DEFAULT false
);
CREATE TABLE IF NOT EXISTS reviews(
  seq BIGSERIAL UNIQUE,
  id text PRIMARY KEY,
  agreement_id text NOT NULL,
  reviewer text NOT NULL,
  reviewee text NOT NULL,
  reviewer_role text NOT NULL,
  rating int NOT NULL,
  review_text text NOT NULL,
  created_at bigint NOT NULL,
  UNIQUE (agreement_id, reviewer)
);
CREATE INDEX IF NOT EXISTS reviews_by_agreement ON reviews(agreement_id, seq);
CREATE INDEX IF NOT EXISTS reviews_by_reviewer  ON reviews(reviewer, seq);
`)
	return err
}

func (s *Postgres) InitState(ctx context.Context, st State) error {
	tag, err := s.DB.Exec(ctx, `
INSERT INTO review_state(singleton, admin_address, paused)
VALUES(1, $1, false)
ON CONFLICT (singleton) DO NOTHING
`, st.Admin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	return nil
}

func (s *Postgres) GetState(ctx context.Context) (State, error) {
	var st State
	err := s.DB.QueryRow(ctx,
		`SELECT admin_address, paused FROM review_state WHERE singleton = 1`,
	).Scan(&st.Admin, &st.Paused)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, domain.ErrNotInitialized
	}
	return st, err
}

func (s *Postgres) SetPaused(ctx context.Context, paused bool) error {
	tag, err := s.DB.Exec(ctx, `UPDATE review_state SET paused = $1 WHERE singleton = 1`, paused)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInitialized
	}
	return nil
}

const reviewColumns = `id, agreement_id, reviewer, reviewee, reviewer_role, rating, review_text, created_at`

func (s *Postgres) CreateReview(ctx context.Context, r domain.Review) error {
	tag, err := s.DB.Exec(ctx, `
INSERT INTO reviews(`+reviewColumns+`)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (agreement_id, reviewer) DO NOTHING
`, r.ID, r.AgreementID, r.Reviewer, r.Reviewee, r.ReviewerRole, r.Rating, r.ReviewText, r.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateReview
	}
	return nil
}

func (s *Postgres) GetReview(ctx context.Context, id domain.ID) (domain.Review, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	r, err := scanReview(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	return r, err
}

func (s *Postgres) ListByAgreement(ctx context.Context, agreementID domain.ID) ([]domain.Review, error) {
	return s.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE agreement_id = $1 ORDER BY seq`, agreementID)
}

func (s *Postgres) ListByReviewer(ctx context.Context, reviewer domain.Address) ([]domain.Review, error) {
	return s.list(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE reviewer = $1 ORDER BY seq`, reviewer)
}

func (s *Postgres) list(ctx context.Context, sql string, args ...any) ([]domain.Review, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var r domain.Review
	err := row.Scan(&r.ID, &r.AgreementID, &r.Reviewer, &r.Reviewee, &r.ReviewerRole, &r.Rating, &r.ReviewText, &r.CreatedAt)
	return r, err
}
