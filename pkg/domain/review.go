package domain

import "errors"

type ReviewerRole string

const (
	ReviewerTenant   ReviewerRole = "TENANT"
	ReviewerLandlord ReviewerRole = "LANDLORD"
)

const (
	// ReviewEligibilityWindow is how long after an agreement's start date a
	// party must wait before reviewing, in seconds.
	ReviewEligibilityWindow int64 = 30 * SecondsPerDay

	MaxReviewTextLen = 2000
	MinRating        = 1
	MaxRating        = 5
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrReviewTooLong = errors.New("review text exceeds the maximum length")
)

// Review is one party's post-occupancy review of the other. Immutable once
// created; at most one per (agreement, reviewer).
type Review struct {
	ID           ID           `json:"id"`
	AgreementID  ID           `json:"agreement_id"`
	Reviewer     Address      `json:"reviewer"`
	Reviewee     Address      `json:"reviewee"`
	ReviewerRole ReviewerRole `json:"reviewer_role"`
	Rating       int          `json:"rating"`
	ReviewText   string       `json:"review_text"`
	CreatedAt    int64        `json:"created_at"`
}

func ValidateReviewInput(rating int, text string) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	if len(text) > MaxReviewTextLen {
		return ErrReviewTooLong
	}
	return nil
}
