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
CREATE TABLE IF NOT EXISTS reward_state(
  singleton smallint PRIMARY KEY DEFAULT 1 CHECK (singleton = 1),
  admin_address text NOT NULL,
  paused boolean NOT NULL DEFAULT false,
  token_name text NOT NULL,
  token_symbol text NOT NULL,
  token_decimals int NOT NULL,
  first_payment_reward bigint NOT NULL,
  review_reward bigint NOT NULL,
  mutual_review_bonus bigint NOT NULL
);
CREATE TABLE IF NOT EXISTS reward_balances(
  address text PRIMARY KEY,
  balance bigint NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS reward_supply(
  singleton smallint PRIMARY KEY DEFAULT 1 CHECK (singleton = 1),
  total bigint NOT NULL
);
CREATE TABLE IF NOT EXISTS reward_claims(
  claim_key text PRIMARY KEY,
  claimed_at bigint NOT NULL DEFAULT extract(epoch from now())::bigint
);
`)
	return err
}

func (s *Postgres) InitState(ctx context.Context, st State) error {
	tag, err := s.DB.Exec(ctx, `
INSERT INTO reward_state(singleton, admin_address, paused, token_name, token_symbol, token_decimals,
  first_payment_reward, review_reward, mutual_review_bonus)
VALUES(1, $1, false, $2, $3, $4, $5, $6, $7)
ON CONFLICT (singleton) DO NOTHING
`, st.Admin, st.Metadata.Name, st.Metadata.Symbol, st.Metadata.Decimals,
		st.Config.FirstPaymentReward, st.Config.ReviewReward, st.Config.MutualReviewBonus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyInitialized
	}
	_, err = s.DB.Exec(ctx, `INSERT INTO reward_supply(singleton, total) VALUES(1, 0) ON CONFLICT (singleton) DO NOTHING`)
	return err
}

func (s *Postgres) GetState(ctx context.Context) (State, error) {
	var st State
	err := s.DB.QueryRow(ctx, `
SELECT admin_address, paused, token_name, token_symbol, token_decimals,
  first_payment_reward, review_reward, mutual_review_bonus
FROM reward_state WHERE singleton = 1
`).Scan(&st.Admin, &st.Paused, &st.Metadata.Name, &st.Metadata.Symbol, &st.Metadata.Decimals,
		&st.Config.FirstPaymentReward, &st.Config.ReviewReward, &st.Config.MutualReviewBonus)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, domain.ErrNotInitialized
	}
	return st, err
}

func (s *Postgres) SetPaused(ctx context.Context, paused bool) error {
	tag, err := s.DB.Exec(ctx, `UPDATE reward_state SET paused = $1 WHERE singleton = 1`, paused)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInitialized
	}
	return nil
}

func (s *Postgres) SetRewardConfig(ctx context.Context, c domain.RewardConfig) error {
	tag, err := s.DB.Exec(ctx, `
UPDATE reward_state SET first_payment_reward = $1, review_reward = $2, mutual_review_bonus = $3
WHERE singleton = 1
`, c.FirstPaymentReward, c.ReviewReward, c.MutualReviewBonus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotInitialized
	}
	return nil
}

func (s *Postgres) Balance(ctx context.Context, addr domain.Address) (int64, error) {
	var bal int64
	err := s.DB.QueryRow(ctx, `SELECT balance FROM reward_balances WHERE address = $1`, addr).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return bal, err
}

func (s *Postgres) TotalSupply(ctx context.Context) (int64, error) {
	var total int64
	err := s.DB.QueryRow(ctx, `SELECT total FROM reward_supply WHERE singleton = 1`).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return total, err
}

func (s *Postgres) Transfer(ctx context.Context, from, to domain.Address, amount int64) error {
	return s.tx(ctx, func(tx pgx.Tx) error {
		if err := debit(ctx, tx, from, amount); err != nil {
			return err
		}
		return credit(ctx, tx, to, amount)
	})
}

func (s *Postgres) Mint(ctx context.Context, to domain.Address, amount int64) error {
	return s.tx(ctx, func(tx pgx.Tx) error {
		return mint(ctx, tx, to, amount)
	})
}

func (s *Postgres) Burn(ctx context.Context, from domain.Address, amount int64) error {
	return s.tx(ctx, func(tx pgx.Tx) error {
		if err := debit(ctx, tx, from, amount); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE reward_supply SET total = total - $1 WHERE singleton = 1`, amount)
		return err
	})
}

func (s *Postgres) RedeemClaim(ctx context.Context, key string, credits []Credit) (claimed bool, err error) {
	err = s.tx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO reward_claims(claim_key) VALUES($1) ON CONFLICT (claim_key) DO NOTHING`, key)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		for _, c := range credits {
			if err := mint(ctx, tx, c.To, c.Amount); err != nil {
				return err
			}
		}
		claimed = true
		return nil
	})
	return claimed, err
}

func (s *Postgres) tx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func debit(ctx context.Context, tx pgx.Tx, from domain.Address, amount int64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE reward_balances SET balance = balance - $2 WHERE address = $1 AND balance >= $2`,
		from, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func credit(ctx context.Context, tx pgx.Tx, to domain.Address, amount int64) error {
	_, err := tx.Exec(ctx, `
INSERT INTO reward_balances(address, balance) VALUES($1, $2)
ON CONFLICT (address) DO UPDATE SET balance = reward_balances.balance + EXCLUDED.balance
`, to, amount)
	return err
}

func mint(ctx context.Context, tx pgx.Tx, to domain.Address, amount int64) error {
	if err := credit(ctx, tx, to, amount); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `UPDATE reward_supply SET total = total + $1 WHERE singleton = 1`, amount)
	return err
}
