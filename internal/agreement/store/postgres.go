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
CREATE TABLE IF NOT EXISTS agreement_state(
  singleton  smallint PRIMARY KEY DEFAULT 1 CHECK (singleton = 1),
  admin_address  text NOT NULL,
  escrow_address text NOT NULL,
  paused boolean NOT NULL DEFAULT false
);
CREATE TABLE IF NOT EXISTS agreements(
  seq BIGSERIAL UNIQUE,
  id text PRIMARY KEY,
  property_id text NOT NULL,
  landlord text NOT NULL,
  tenant text NOT NULL,
  monthly_rent bigint NOT NULL,
  security_deposit bigint NOT NULL,
  start_date bigint NOT NULL,
  end_date bigint NOT NULL,
  status text NOT NULL,
  landlord_signed boolean NOT NULL,
  landlord_signed_at bigint NOT NULL,
  tenant_signed boolean NOT NULL,
  tenant_signed_at bigint NOT NULL,
  deposit_paid boolean NOT NULL,
  deposit_paid_at bigint NOT NULL,
  total_rent_paid bigint NOT NULL,
  months_paid bigint NOT NULL,
  created_at bigint NOT NULL,
  completed_at bigint NOT NULL
);
CREATE INDEX IF NOT EXISTS agreements_by_tenant   ON agreements(tenant, seq);
CREATE INDEX IF NOT EXISTS agreements_by_landlord ON agreements(landlord, seq);
CREATE INDEX IF NOT EXISTS agreements_by_property ON agreements(property_id, seq);
`)
	return err
}

func (s *Postgres) InitState(ctx context.Context, st State) error {
	tag, err := s.DB.Exec(ctx, `
INSERT INTO agreement_state(singleton, admin_address, escrow_address, paused)
VALUES(1, $1, $2, false)
ON CONFLICT (singleton) DO NOTHING
`, st.Admin, st.Escrow)
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
		`SELECT admin_address, escrow_address, paused FROM agreement_state WHERE singleton = 1`,
	).Scan(&st.Admin, &st.Escrow, &st.Paused)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, domain.ErrNotInitialized
	}
	return st, err
}

func (s *Postgres) SetPaused(ctx context.Context, paused bool) error {
	tag, err := s.DB.Exec(ctx, `UPDATE agreement_state SET paused = $1 WHERE singleton = 1`, paused)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInitialized
	}
	return nil
}

const agreementColumns = `id, property_id, landlord, tenant, monthly_rent, security_deposit,
start_date, end_date, status, landlord_signed, landlord_signed_at, tenant_signed,
tenant_signed_at, deposit_paid, deposit_paid_at, total_rent_paid, months_paid,
created_at, completed_at`

func (s *Postgres) CreateAgreement(ctx context.Context, a domain.Agreement) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO agreements(`+agreementColumns+`)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
`, a.ID, a.PropertyID, a.Landlord, a.Tenant, a.MonthlyRent, a.SecurityDeposit,
		a.StartDate, a.EndDate, a.Status, a.LandlordSigned, a.LandlordSignedAt, a.TenantSigned,
		a.TenantSignedAt, a.DepositPaid, a.DepositPaidAt, a.TotalRentPaid, a.MonthsPaid,
		a.CreatedAt, a.CompletedAt)
	return err
}

func (s *Postgres) GetAgreement(ctx context.Context, id domain.ID) (domain.Agreement, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1`, id)
	a, err := scanAgreement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Agreement{}, domain.ErrNotFound
	}
	return a, err
}

func (s *Postgres) UpdateAgreement(ctx context.Context, a domain.Agreement) error {
	tag, err := s.DB.Exec(ctx, `
UPDATE agreements SET
  status = $2,
  landlord_signed = $3, landlord_signed_at = $4,
  tenant_signed = $5, tenant_signed_at = $6,
  deposit_paid = $7, deposit_paid_at = $8,
  total_rent_paid = $9, months_paid = $10,
  completed_at = $11
WHERE id = $1
`, a.ID, a.Status, a.LandlordSigned, a.LandlordSignedAt, a.TenantSigned, a.TenantSignedAt,
		a.DepositPaid, a.DepositPaidAt, a.TotalRentPaid, a.MonthsPaid, a.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListAll(ctx context.Context) ([]domain.Agreement, error) {
	return s.list(ctx, `SELECT `+agreementColumns+` FROM agreements ORDER BY seq`)
}

func (s *Postgres) ListByTenant(ctx context.Context, tenant domain.Address) ([]domain.Agreement, error) {
	return s.list(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE tenant = $1 ORDER BY seq`, tenant)
}

func (s *Postgres) ListByLandlord(ctx context.Context, landlord domain.Address) ([]domain.Agreement, error) {
	return s.list(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE landlord = $1 ORDER BY seq`, landlord)
}

func (s *Postgres) ListByProperty(ctx context.Context, propertyID domain.ID) ([]domain.Agreement, error) {
	return s.list(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE property_id = $1 ORDER BY seq`, propertyID)
}

func (s *Postgres) list(ctx context.Context, sql string, args ...any) ([]domain.Agreement, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAgreement(row pgx.Row) (domain.Agreement, error) {
	var a domain.Agreement
	err := row.Scan(&a.ID, &a.PropertyID, &a.Landlord, &a.Tenant, &a.MonthlyRent, &a.SecurityDeposit,
		&a.StartDate, &a.EndDate, &a.Status, &a.LandlordSigned, &a.LandlordSignedAt, &a.TenantSigned,
		&a.TenantSignedAt, &a.DepositPaid, &a.DepositPaidAt, &a.TotalRentPaid, &a.MonthsPaid,
		&a.CreatedAt, &a.CompletedAt)
	return a, err
}
