package models

// Polish PIT-38 / DSF-1 policy constants for a single filing regime. These
// are a fixed, versioned policy, not a configurable rules engine.
const (
	flatTaxRate          = 0.19      // capital gains, crypto and interest flat rate
	donationDeductionCap = 0.06      // donations deductible up to 6% of employment profit
	solidarityThreshold  = 1_000_000 // PLN, total profit above this owes the surcharge
	solidarityRate       = 0.04
)

// TaxRecord holds the raw per-year inputs of a tax filing, in the reporting
// currency (PLN). Every derived figure is a pure function of these stored
// fields; nothing below mutates the record.
//
// Records add field-wise, which makes TaxRecord a commutative monoid with the
// zero value as identity. Derived values are always recomputed from the summed
// raw fields, never summed themselves.
type TaxRecord struct {
	TradeRevenue                      float64 `json:"trade_revenue"`
	TradeCost                         float64 `json:"trade_cost"`
	TradeLossFromPreviousYears        float64 `json:"trade_loss_from_previous_years"`
	CryptoRevenue                     float64 `json:"crypto_revenue"`
	CryptoCost                        float64 `json:"crypto_cost"`
	CryptoCostExcessFromPreviousYears float64 `json:"crypto_cost_excess_from_previous_years"`
	DomesticInterest                  float64 `json:"domestic_interest"`
	ForeignInterest                   float64 `json:"foreign_interest"`
	ForeignInterestWithholdingTax     float64 `json:"foreign_interest_withholding_tax"`
	EmploymentRevenue                 float64 `json:"employment_revenue"`
	EmploymentCost                    float64 `json:"employment_cost"`
	SocialSecurityContributions       float64 `json:"social_security_contributions"`
	Donations                         float64 `json:"donations"`
}

// Add returns the field-wise sum of two records.
func (r TaxRecord) Add(o TaxRecord) TaxRecord {
	return TaxRecord{
		TradeRevenue:                      r.TradeRevenue + o.TradeRevenue,
		TradeCost:                         r.TradeCost + o.TradeCost,
		TradeLossFromPreviousYears:        r.TradeLossFromPreviousYears + o.TradeLossFromPreviousYears,
		CryptoRevenue:                     r.CryptoRevenue + o.CryptoRevenue,
		CryptoCost:                        r.CryptoCost + o.CryptoCost,
		CryptoCostExcessFromPreviousYears: r.CryptoCostExcessFromPreviousYears + o.CryptoCostExcessFromPreviousYears,
		DomesticInterest:                  r.DomesticInterest + o.DomesticInterest,
		ForeignInterest:                   r.ForeignInterest + o.ForeignInterest,
		ForeignInterestWithholdingTax:     r.ForeignInterestWithholdingTax + o.ForeignInterestWithholdingTax,
		EmploymentRevenue:                 r.EmploymentRevenue + o.EmploymentRevenue,
		EmploymentCost:                    r.EmploymentCost + o.EmploymentCost,
		SocialSecurityContributions:       r.SocialSecurityContributions + o.SocialSecurityContributions,
		Donations:                         r.Donations + o.Donations,
	}
}

// TradeProfit is the taxable equity result after the prior-year loss offset,
// floored at zero (PIT-38/C).
func (r TaxRecord) TradeProfit() float64 {
	amount := r.TradeRevenue - r.TradeCost - r.TradeLossFromPreviousYears
	if amount > 0 {
		return amount
	}
	return 0
}

// TradeLoss is the loss carried into the next year (PIT-38/D28).
func (r TaxRecord) TradeLoss() float64 {
	amount := r.TradeRevenue - r.TradeCost - r.TradeLossFromPreviousYears
	if amount < 0 {
		return -amount
	}
	return 0
}

func (r TaxRecord) TradeTax() float64 {
	return r.TradeProfit() * flatTaxRate
}

// CryptoProfit mirrors TradeProfit for the separate crypto basket (PIT-38/E).
func (r TaxRecord) CryptoProfit() float64 {
	amount := r.CryptoRevenue - r.CryptoCost - r.CryptoCostExcessFromPreviousYears
	if amount > 0 {
		return amount
	}
	return 0
}

// CryptoCostExcess is the unconsumed crypto cost carried into the next year.
func (r TaxRecord) CryptoCostExcess() float64 {
	amount := r.CryptoRevenue - r.CryptoCost - r.CryptoCostExcessFromPreviousYears
	if amount < 0 {
		return -amount
	}
	return 0
}

func (r TaxRecord) CryptoTax() float64 {
	return r.CryptoProfit() * flatTaxRate
}

func (r TaxRecord) DomesticInterestTax() float64 {
	return r.DomesticInterest * flatTaxRate
}

func (r TaxRecord) ForeignInterestTax() float64 {
	return r.ForeignInterest * flatTaxRate
}

// ForeignInterestRemainingTax is the domestic tax still owed on foreign
// interest and dividends after crediting tax withheld at source, floored at
// zero (withholding never refunds).
func (r TaxRecord) ForeignInterestRemainingTax() float64 {
	remaining := r.ForeignInterestTax() - r.ForeignInterestWithholdingTax
	if remaining > 0 {
		return remaining
	}
	return 0
}

func (r TaxRecord) EmploymentProfit() float64 {
	return r.EmploymentRevenue - r.EmploymentCost
}

// EmploymentProfitDeduction is the charitable-donation deduction, bounded by
// 6% of employment profit (PIT/O).
func (r TaxRecord) EmploymentProfitDeduction() float64 {
	limit := donationDeductionCap * r.EmploymentProfit()
	if r.Donations < limit {
		return r.Donations
	}
	return limit
}

// TotalProfit is the solidarity-surcharge base before deductions (DSF-1/C18).
func (r TaxRecord) TotalProfit() float64 {
	return r.EmploymentProfit() + r.TradeProfit() + r.CryptoProfit()
}

func (r TaxRecord) TotalProfitDeductions() float64 {
	return r.EmploymentProfitDeduction() + r.SocialSecurityContributions
}

// SolidarityTax is the 4% surcharge on total profit above the fixed
// threshold, net of deductions.
func (r TaxRecord) SolidarityTax() float64 {
	base := r.TotalProfit() - r.TotalProfitDeductions() - solidarityThreshold
	if base > 0 {
		return base * solidarityRate
	}
	return 0
}

// TotalTax is everything owed for the year across the flat-rate baskets and
// the solidarity surcharge.
func (r TaxRecord) TotalTax() float64 {
	return r.TradeTax() +
		r.CryptoTax() +
		r.DomesticInterestTax() +
		r.ForeignInterestRemainingTax() +
		r.SolidarityTax()
}

// TaxReport maps a tax year to its record. Reports from independent data
// sources (one per broker, manual entries) combine with Add.
type TaxReport map[int]TaxRecord

// Record returns the record for a year, or a zero record when the year is
// absent.
func (t TaxReport) Record(year int) TaxRecord {
	return t[year]
}

// Add merges two reports: the union of their years, with records for years
// present in both added field-wise. Neither operand is modified. The merge is
// associative and commutative up to float rounding.
func (t TaxReport) Add(o TaxReport) TaxReport {
	merged := make(TaxReport, len(t)+len(o))
	for year, record := range t {
		merged[year] = record
	}
	for year, record := range o {
		merged[year] = merged[year].Add(record)
	}
	return merged
}

// Years returns the years present in the report, unordered.
func (t TaxReport) Years() []int {
	years := make([]int, 0, len(t))
	for year := range t {
		years = append(years, year)
	}
	return years
}
