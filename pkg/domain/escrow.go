package domain

type PaymentType string

const (
	PaymentSecurityDeposit     PaymentType = "SECURITY_DEPOSIT"
	PaymentFirstMonthRent      PaymentType = "FIRST_MONTH_RENT"
	PaymentMonthlyRent         PaymentType = "MONTHLY_RENT"
	PaymentDepositRelease      PaymentType = "DEPOSIT_RELEASE"
	PaymentEmergencyWithdrawal PaymentType = "EMERGENCY_WITHDRAWAL"
)

// EscrowAccount tracks custody for one agreement. Created lazily on the
// first funding call, never deleted. security_deposit_held stays >= 0 and
// is_deposit_released is monotonic.
type EscrowAccount struct {
	AgreementID           ID      `json:"agreement_id"`
	Landlord              Address `json:"landlord"`
	Tenant                Address `json:"tenant"`
	SecurityDepositAmount int64   `json:"security_deposit_amount"`
	SecurityDepositHeld   int64   `json:"security_deposit_held"`
	MonthlyRentAmount     int64   `json:"monthly_rent_amount"`
	TotalRentReceived     int64   `json:"total_rent_received"`
	TotalRentReleased     int64   `json:"total_rent_released"`
	IsDepositReleased     bool    `json:"is_deposit_released"`
	DepositReleasedAt     int64   `json:"deposit_released_at"`
	CreatedAt             int64   `json:"created_at"`
}

// PaymentRecord is an immutable entry in the per-agreement payment log.
type PaymentRecord struct {
	ID          ID          `json:"id"`
	AgreementID ID          `json:"agreement_id"`
	Payer       Address     `json:"payer"`
	Payee       Address     `json:"payee"`
	Amount      int64       `json:"amount"`
	PaymentType PaymentType `json:"payment_type"`
	Timestamp   int64       `json:"timestamp"`
}
