package domain

// Property is the read-only snapshot the catalog service returns. Only the
// fields agreement creation needs are carried.
type Property struct {
	ID              ID      `json:"id"`
	Owner           Address `json:"owner"`
	PricePerMonth   int64   `json:"price_per_month"`
	SecurityDeposit int64   `json:"security_deposit"`
	MinStayDays     int64   `json:"min_stay_days"`
	MaxStayDays     int64   `json:"max_stay_days"`
	IsActive        bool    `json:"is_active"`
	IsAvailable     bool    `json:"is_available"`
}
