package domain

import "errors"

// RewardConfig holds the incentive amounts the reward ledger mints, in token
// minor units. A non-positive amount disables that reward.
type RewardConfig struct {
	FirstPaymentReward int64 `json:"first_payment_reward"`
	ReviewReward       int64 `json:"review_reward"`
	MutualReviewBonus  int64 `json:"mutual_review_bonus"`
}

var ErrNegativeRewardAmount = errors.New("reward amounts must not be negative")

func (c RewardConfig) Validate() error {
	if c.FirstPaymentReward < 0 || c.ReviewReward < 0 || c.MutualReviewBonus < 0 {
		return ErrNegativeRewardAmount
	}
	return nil
}

type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// DefaultTokenMetadata and DefaultRewardConfig seed a freshly initialized
// reward ledger. Amounts use 7 decimals.
func DefaultTokenMetadata() TokenMetadata {
	return TokenMetadata{Name: "Briq Reward", Symbol: "BRIQ-R", Decimals: 7}
}

func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		FirstPaymentReward: 10_000_0000,
		ReviewReward:       25_000_0000,
		MutualReviewBonus:  15_000_0000,
	}
}
