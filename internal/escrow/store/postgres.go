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
CREATE TABLE IF NOT EXISTS escrow_state(
  singleton smallint PRIMARY KEY DEFAULT 1 CHECK (singleton = 1),
  admin_address text NOT NULL,
  paused boolean NOT NULL DEFAULT false
);
CREATE TABLE IF NOT EXISTS escrow_accounts(
  agreement_id text PRIMARY KEY,
  landlord text NOT NULL,
  tenant text NOT NULL,
  security_deposit_amount bigint NOT NULL,
  security_deposit_held bigint NOT NULL,
  monthly_rent_amount bigint NOT NULL,
  total_rent_received bigint NOT NULL,
  total_rent_released bigint NOT NULL,
  is_deposit_released boolean NOT NULL,
  deposit_released_at bigint NOT NULL,
  created_at bigint NOT NULL
);
CREATE TABLE IF NOT EXISTS escrow_payments(
  seq BIGSERIAL UNIQUE,
  id text PRIMARY KEY,
  agreement_id text NOT NULL,
  payer text NOT NULL,
  payee text NOT NULL,
  amount bigint NOT NULL,
  payment_type text NOT NULL,
  ts bigint NOT NULL
);
CREATE INDEX IF NOT EXISTS escrow_payments_by_agreement ON escrow_payments(agreement_id, seq);
`)
	return err
}

func (s *Postgres) InitState(ctx context.Context, st State) error {
	tag, err := s.DB.Exec(ctx, `
INSERT INTO escrow_state(singleton, admin_address, paused)
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
		`SELECT admin_address, paused FROM escrow_state WHERE singleton = 1`,
	).Scan(&st.Admin, &st.Paused)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, domain.ErrNotInitialized
	}
	return st, err
}

func (s *Postgres) SetPaused(ctx context.Context, paused bool) error {
	tag, err := s.DB.Exec(ctx, `UPDATE escrow_state SET paused = $1 WHERE singleton = 1`, paused)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInitialized
	}
	return nil
}

const accountColumns = `agreement_id, landlord, tenant, security_deposit_amount,
security_deposit_held, monthly_rent_amount, total_rent_received, total_rent_released,
is_deposit_released, deposit_released_at, created_at`

func (s *Postgres) UpsertAccount(ctx context.Context, a domain.EscrowAccount) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO escrow_accounts(`+accountColumns+`)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (agreement_id) DO UPDATE SET
  security_deposit_held = EXCLUDED.security_deposit_held,
  total_rent_received = EXCLUDED.total_rent_received,
  total_rent_released = EXCLUDED.total_rent_released,
  is_deposit_released = EXCLUDED.is_deposit_released,
  deposit_released_at = EXCLUDED.deposit_released_at
`, a.AgreementID, a.Landlord, a.Tenant, a.SecurityDepositAmount,
		a.SecurityDepositHeld, a.MonthlyRentAmount, a.TotalRentReceived, a.TotalRentReleased,
		a.IsDepositReleased, a.DepositReleasedAt, a.CreatedAt)
	return err
}

func (s *Postgres) GetAccount(ctx context.Context, agreementID domain.ID) (domain.EscrowAccount, error) {
	var a domain.EscrowAccount
	err := s.DB.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM escrow_accounts WHERE agreement_id = $1`, agreementID,
	).Scan(&a.AgreementID, &a.Landlord, &a.Tenant, &a.SecurityDepositAmount,
		&a.SecurityDepositHeld, &a.MonthlyRentAmount, &a.TotalRentReceived, &a.TotalRentReleased,
		&a.IsDepositReleased, &a.DepositReleasedAt, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EscrowAccount{}, domain.ErrNotFound
	}
	return a, err
}

func (s *Postgres) AppendPayment(ctx context.Context, p domain.PaymentRecord) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO escrow_payments(id, agreement_id, payer, payee, amount, payment_type, ts)
VALUES($1,$2,$3,$4,$5,$6,$7)
`, p.ID, p.AgreementID, p.Payer, p.Payee, p.Amount, p.PaymentType, p.Timestamp)
	return err
}

func (s *Postgres) ListPayments(ctx context.Context, agreementID domain.ID) ([]domain.PaymentRecord, error) {
	if _, err := s.GetAccount(ctx, agreementID); err != nil {
		return nil, err
	}
	rows, err := s.DB.Query(ctx, `
SELECT id, agreement_id, payer, payee, amount, payment_type, ts
FROM escrow_payments WHERE agreement_id = $1 ORDER BY seq
`, agreementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.PaymentRecord
	for rows.Next() {
		var p domain.PaymentRecord
		if err := rows.Scan(&p.ID, &p.AgreementID, &p.Payer, &p.Payee, &p.Amount, &p.PaymentType, &p.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
