package domain

import "errors"

type AgreementStatus string

const (
	StatusDraft               AgreementStatus = "DRAFT"
	StatusPendingTenantSign   AgreementStatus = "PENDING_TENANT_SIGN"
	StatusPendingLandlordSign AgreementStatus = "PENDING_LANDLORD_SIGN"
	StatusPendingPayment      AgreementStatus = "PENDING_PAYMENT"
	StatusActive              AgreementStatus = "ACTIVE"
	StatusCompleted           AgreementStatus = "COMPLETED"
	StatusCancelled           AgreementStatus = "CANCELLED"
)

// Agreement is the contractual record binding one property, one landlord and
// one tenant for a fixed term. Timestamps are unix seconds. Rent and deposit
// are snapshotted from the property at creation and never re-read.
type Agreement struct {
	ID               ID              `json:"id"`
	PropertyID       ID              `json:"property_id"`
	Landlord         Address         `json:"landlord"`
	Tenant           Address         `json:"tenant"`
	MonthlyRent      int64           `json:"monthly_rent"`
	SecurityDeposit  int64           `json:"security_deposit"`
	StartDate        int64           `json:"start_date"`
	EndDate          int64           `json:"end_date"`
	Status           AgreementStatus `json:"status"`
	LandlordSigned   bool            `json:"landlord_signed"`
	LandlordSignedAt int64           `json:"landlord_signed_at"`
	TenantSigned     bool            `json:"tenant_signed"`
	TenantSignedAt   int64           `json:"tenant_signed_at"`
	DepositPaid      bool            `json:"deposit_paid"`
	DepositPaidAt    int64           `json:"deposit_paid_at"`
	TotalRentPaid    int64           `json:"total_rent_paid"`
	MonthsPaid       int64           `json:"months_paid"`
	CreatedAt        int64           `json:"created_at"`
	CompletedAt      int64           `json:"completed_at"`
}

// IsParty reports whether addr is the tenant or the landlord.
func (a Agreement) IsParty(addr Address) bool {
	return addr == a.Tenant || addr == a.Landlord
}

// NextStatusAfterSignature recomputes the pre-payment status from the pair of
// signature flags.
func NextStatusAfterSignature(tenantSigned, landlordSigned bool) AgreementStatus {
	switch {
	case tenantSigned && landlordSigned:
		return StatusPendingPayment
	case tenantSigned:
		return StatusPendingLandlordSign
	case landlordSigned:
		return StatusPendingTenantSign
	default:
		return StatusDraft
	}
}

const SecondsPerDay int64 = 24 * 60 * 60

var (
	ErrInvalidDates         = errors.New("end date must be after start date")
	ErrDurationBelowMinimum = errors.New("term shorter than the property minimum stay")
	ErrDurationAboveMaximum = errors.New("term longer than the property maximum stay")
)

// ValidateTerm checks a proposed rental term against a property's stay
// bounds. Duration counts whole elapsed days.
func ValidateTerm(startDate, endDate int64, minStayDays, maxStayDays int64) error {
	if endDate <= startDate {
		return ErrInvalidDates
	}
	durationDays := (endDate - startDate) / SecondsPerDay
	if durationDays < minStayDays {
		return ErrDurationBelowMinimum
	}
	if durationDays > maxStayDays {
		return ErrDurationAboveMaximum
	}
	return nil
}
