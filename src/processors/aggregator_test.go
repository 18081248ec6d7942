package processors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/pitfolio/src/models"
)

func testRates() *RateTable {
	table := NewRateTable()
	table.Add("USD", day("2023-01-02"), 4.00)
	table.Add("USD", day("2023-06-01"), 4.20)
	table.Add("EUR", day("2023-01-02"), 4.50)
	return table
}

type fakePrices struct {
	price    float64
	currency string
	err      error
	calls    int
}

func (f *fakePrices) CurrentPrice(symbol string) (float64, string, error) {
	f.calls++
	return f.price, f.currency, f.err
}

func TestAggregateEquityRoundTrip(t *testing.T) {
	agg := NewAggregator(NewSchwabClassifier(), testRates(), nil)

	result, err := agg.Aggregate([]models.RawAction{
		{
			Date: day("2023-01-10"), Action: "Deposit", Symbol: "ACME",
			Description: "ESPP", Quantity: 10, UnitCost: 10.00, Currency: "USD",
		},
		{
			Date: day("2023-06-15"), Action: "Sale", Symbol: "ACME",
			Description: "ESPP", Quantity: 10, UnitPrice: 15.00, Currency: "USD",
		},
	})
	require.NoError(t, err)

	record := result.Report.Record(2023)
	// Revenue converts at the sale-date rate, cost at each lot's own
	// acquisition-date rate: 10*15*4.20 and 10*10*4.00.
	assert.InDelta(t, 630.0, record.TradeRevenue, 1e-9)
	assert.InDelta(t, 400.0, record.TradeCost, 1e-9)
	assert.InDelta(t, 230.0, record.TradeProfit(), 1e-9)
	assert.InDelta(t, 43.70, record.TradeTax(), 1e-9)

	assert.Empty(t, result.Remaining)
	assert.Empty(t, result.Diagnostics)
}

func TestAggregatePartialDisposalSpansYears(t *testing.T) {
	agg := NewAggregator(NewSchwabClassifier(), testRates(), nil)

	result, err := agg.Aggregate([]models.RawAction{
		{
			Date: day("2023-01-10"), Action: "Deposit", Symbol: "ACME",
			Description: "RS", Quantity: 4, UnitCost: 10.00, Currency: "USD",
		},
		{
			Date: day("2023-06-15"), Action: "Sale", Symbol: "ACME",
			Description: "RS", Quantity: 1, UnitPrice: 12.00, Fee: 2.00, Currency: "USD",
		},
	})
	require.NoError(t, err)

	record := result.Report.Record(2023)
	assert.InDelta(t, 12.00*4.20, record.TradeRevenue, 1e-9)
	// One lot's cost plus the sale fee, both in PLN.
	assert.InDelta(t, 10.00*4.00+2.00*4.20, record.TradeCost, 1e-9)

	require.Len(t, result.Remaining, 1)
	assert.Equal(t, "RS", result.Remaining[0].Key)
	assert.Equal(t, 3, result.Remaining[0].Quantity)
	assert.InDelta(t, 3*10.00*4.00, result.Remaining[0].Cost, 1e-9)
	// No price source wired: value stays zero, cost still reported.
	assert.Zero(t, result.Remaining[0].Value)
}

func TestAggregateFailsOnOverDisposal(t *testing.T) {
	agg := NewAggregator(NewSchwabClassifier(), testRates(), nil)

	_, err := agg.Aggregate([]models.RawAction{
		{
			Date: day("2023-01-10"), Action: "Deposit", Symbol: "ACME",
			Description: "RS", Quantity: 2, UnitCost: 10.00, Currency: "USD",
		},
		{
			Date: day("2023-06-15"), Action: "Sale", Symbol: "ACME",
			Description: "RS", Quantity: 3, UnitPrice: 12.00, Currency: "USD",
		},
	})
	var insufficient *InsufficientLotsError
	require.ErrorAs(t, err, &insufficient)
	assert.Contains(t, err.Error(), "2023-06-15")
}

func TestAggregateFailsOnMissingRate(t *testing.T) {
	agg := NewAggregator(NewSchwabClassifier(), testRates(), nil)

	_, err := agg.Aggregate([]models.RawAction{
		{
			Date: day("2023-01-10"), Action: "Deposit", Symbol: "ACME",
			Description: "RS", Quantity: 1, UnitCost: 10.00, Currency: "CHF",
		},
		{
			Date: day("2023-06-15"), Action: "Sale", Symbol: "ACME",
			Description: "RS", Quantity: 1, UnitPrice: 12.00, Currency: "CHF",
		},
	})
	var missing *MissingRateError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "CHF", missing.Currency)
}

func TestAggregateUnknownActionIsDiagnosticNotFatal(t *testing.T) {
	agg := NewAggregator(NewSchwabClassifier(), testRates(), nil)

	result, err := agg.Aggregate([]models.RawAction{
		{Date: day("2023-02-01"), Action: "Journal", Currency: "USD"},
		{Date: day("2023-03-01"), Action: "Dividend", Amount: 10.00, Currency: "USD"},
	})
	require.NoError(t, err)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "Journal", result.Diagnostics[0].Action)
	assert.Contains(t, result.Diagnostics[0].Message, "unknown action")

	// The recognized row still lands in the report.
	assert.InDelta(t, 40.0, result.Report.Record(2023).ForeignInterest, 1e-9)
}

func TestAggregateDividendAndWithholding(t *testing.T) {
	agg := NewAggregator(NewSchwabClassifier(), testRates(), nil)

	result, err := agg.Aggregate([]models.RawAction{
		{Date: day("2023-03-01"), Action: "Dividend", Amount: 100.00, Currency: "USD"},
		{Date: day("2023-03-01"), Action: "Tax Withholding", Amount: -15.00, Currency: "USD"},
	})
	require.NoError(t, err)

	record := result.Report.Record(2023)
	assert.InDelta(t, 400.0, record.ForeignInterest, 1e-9)
	assert.InDelta(t, 60.0, record.ForeignInterestWithholdingTax, 1e-9)
	assert.InDelta(t, 0.19*400-60, record.ForeignInterestRemainingTax(), 1e-9)
}

func TestAggregateWireTransferFeeReducesTradeProfit(t *testing.T) {
	agg := NewAggregator(NewSchwabClassifier(), testRates(), nil)

	result, err := agg.Aggregate([]models.RawAction{
		{Date: day("2023-06-15"), Action: "Wire Transfer", Amount: -5000, Fee: 25.00, Currency: "USD"},
	})
	require.NoError(t, err)

	record := result.Report.Record(2023)
	assert.InDelta(t, 25.00*4.20, record.TradeCost, 1e-9)
	assert.Zero(t, record.TradeRevenue)
}

func TestAggregateCryptoCostsRecognizedWhenIncurred(t *testing.T) {
	agg := NewAggregator(NewCoinbaseClassifier(), testRates(), nil)

	result, err := agg.Aggregate([]models.RawAction{
		{Date: day("2023-01-10"), Action: "Advanced Trade Buy", Symbol: "BTC", Amount: 1000, Fee: 6, Currency: "EUR"},
		{Date: day("2023-06-15"), Action: "Advanced Trade Sell", Symbol: "BTC", Amount: 1200, Fee: 7, Currency: "EUR"},
	})
	require.NoError(t, err)

	record := result.Report.Record(2023)
	assert.InDelta(t, 1200*4.50, record.CryptoRevenue, 1e-9)
	assert.InDelta(t, (1000+6)*4.50+7*4.50, record.CryptoCost, 1e-9)

	// Crypto never enters the lot inventory.
	assert.Empty(t, result.Remaining)
}

func TestAggregateDomesticInterest(t *testing.T) {
	agg := NewAggregator(NewRevolutClassifier(), testRates(), nil)

	result, err := agg.Aggregate([]models.RawAction{
		{Date: day("2023-04-01"), Description: "Gross interest earned", Amount: 3.21, Currency: "PLN"},
		{Date: day("2023-05-01"), Description: "Gross interest earned", Amount: 4.79, Currency: "PLN"},
	})
	require.NoError(t, err)

	record := result.Report.Record(2023)
	assert.InDelta(t, 8.00, record.DomesticInterest, 1e-9)
	assert.InDelta(t, 1.52, record.DomesticInterestTax(), 1e-9)
}

func TestAggregateYearsSplitByActionDate(t *testing.T) {
	table := testRates()
	table.Add("USD", day("2024-01-02"), 3.90)
	agg := NewAggregator(NewSchwabClassifier(), table, nil)

	result, err := agg.Aggregate([]models.RawAction{
		{
			Date: day("2023-01-10"), Action: "Deposit", Symbol: "ACME",
			Description: "RS", Quantity: 2, UnitCost: 10.00, Currency: "USD",
		},
		{
			Date: day("2024-02-15"), Action: "Sale", Symbol: "ACME",
			Description: "RS", Quantity: 2, UnitPrice: 20.00, Currency: "USD",
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Report, 1)
	record := result.Report.Record(2024)
	assert.InDelta(t, 2*20.00*3.90, record.TradeRevenue, 1e-9)
	// Cost keeps the acquisition year's rate even across the year boundary.
	assert.InDelta(t, 2*10.00*4.00, record.TradeCost, 1e-9)
}

func TestValueRemainingWithPriceSource(t *testing.T) {
	prices := &fakePrices{price: 18.00, currency: "USD"}
	agg := NewAggregator(NewSchwabClassifier(), testRates(), prices)

	result, err := agg.Aggregate([]models.RawAction{
		{
			Date: day("2023-01-10"), Action: "Deposit", Symbol: "ACME",
			Description: "ESPP", Quantity: 3, UnitCost: 10.00, Currency: "USD",
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Remaining, 1)
	position := result.Remaining[0]
	assert.Equal(t, "ACME", position.Symbol)
	assert.Equal(t, 3, position.Quantity)
	assert.InDelta(t, 3*18.00*4.20, position.Value, 1e-9)
	assert.InDelta(t, 3*10.00*4.00, position.Cost, 1e-9)
	// One fetch per key, not per lot.
	assert.Equal(t, 1, prices.calls)
}

func TestValueRemainingPriceFailureIsDiagnostic(t *testing.T) {
	prices := &fakePrices{err: errors.New("quote service down")}
	agg := NewAggregator(NewSchwabClassifier(), testRates(), prices)

	result, err := agg.Aggregate([]models.RawAction{
		{
			Date: day("2023-01-10"), Action: "Deposit", Symbol: "ACME",
			Description: "ESPP", Quantity: 2, UnitCost: 10.00, Currency: "USD",
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Remaining, 1)
	assert.Zero(t, result.Remaining[0].Value)
	assert.InDelta(t, 2*10.00*4.00, result.Remaining[0].Cost, 1e-9)

	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "no current price for ACME")
}
