package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/username/pitfolio/src/models"
)

func TestSchwabClassifier(t *testing.T) {
	classifier := NewSchwabClassifier()

	tests := []struct {
		name   string
		action models.RawAction
		want   Event
	}{
		{
			name: "deposit keys on grant type",
			action: models.RawAction{
				Action: "Deposit", Symbol: "ACME", Description: "ESPP",
				Quantity: 10, UnitCost: 25.50, Currency: "USD",
			},
			want: Event{
				Kind: EventAcquire, Class: ClassEquity, Key: "ESPP",
				Symbol: "ACME", Count: 10, UnitCost: 25.50, Currency: "USD",
			},
		},
		{
			name: "sale keys on sold award type",
			action: models.RawAction{
				Action: "Sale", Symbol: "ACME", Description: "RS",
				Quantity: 5, UnitPrice: 30.00, Fee: 1.25, Currency: "USD",
			},
			want: Event{
				Kind: EventDispose, Class: ClassEquity, Key: "RS",
				Symbol: "ACME", Count: 5, UnitPrice: 30.00, Fee: 1.25, Currency: "USD",
			},
		},
		{
			name:   "lapse is informational",
			action: models.RawAction{Action: "Lapse", Quantity: 20},
			want:   Event{Kind: EventLapse, Count: 20},
		},
		{
			name:   "dividend",
			action: models.RawAction{Action: "Dividend", Amount: 12.34, Currency: "USD"},
			want:   Event{Kind: EventDividend, Class: ClassEquity, Amount: 12.34, Currency: "USD"},
		},
		{
			name:   "tax withholding negates the booked amount",
			action: models.RawAction{Action: "Tax Withholding", Amount: -1.85, Currency: "USD"},
			want:   Event{Kind: EventWithholdingTax, Class: ClassEquity, Amount: 1.85, Currency: "USD"},
		},
		{
			name:   "wire transfer carries only fees",
			action: models.RawAction{Action: "Wire Transfer", Amount: -500, Fee: 25, Currency: "USD"},
			want:   Event{Kind: EventCashMovement, Amount: -500, Fee: 25, Currency: "USD"},
		},
		{
			name:   "anything else is unknown",
			action: models.RawAction{Action: "Journal"},
			want:   Event{Kind: EventUnknown, Description: "Journal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.action))
		})
	}
}

func TestCoinbaseClassifier(t *testing.T) {
	classifier := NewCoinbaseClassifier()

	buy := classifier.Classify(models.RawAction{
		Action: "Advanced Trade Buy", Symbol: "BTC", Amount: 1204.04, Fee: 7.20, Currency: "EUR",
	})
	assert.Equal(t, EventAcquire, buy.Kind)
	assert.Equal(t, ClassCrypto, buy.Class)
	assert.Equal(t, "BTC", buy.Key)
	assert.Equal(t, 1204.04, buy.Amount)

	sell := classifier.Classify(models.RawAction{
		Action: "Advanced Trade Sell", Symbol: "BTC", Amount: 1500.00, Fee: 9.00, Currency: "EUR",
	})
	assert.Equal(t, EventDispose, sell.Kind)
	assert.Equal(t, ClassCrypto, sell.Class)

	other := classifier.Classify(models.RawAction{Action: "Receive"})
	assert.Equal(t, EventUnknown, other.Kind)
}

func TestIBKRClassifier(t *testing.T) {
	classifier := NewIBKRClassifier()

	tests := []struct {
		name   string
		action models.RawAction
		want   Event
	}{
		{
			name: "buy keys on symbol",
			action: models.RawAction{
				Action: "BUY", Symbol: "ACME",
				Quantity: 10, UnitCost: 20.20, Currency: "USD",
			},
			want: Event{
				Kind: EventAcquire, Class: ClassEquity, Key: "ACME",
				Symbol: "ACME", Count: 10, UnitCost: 20.20, Currency: "USD",
			},
		},
		{
			name: "sell carries price and commission",
			action: models.RawAction{
				Action: "SELL", Symbol: "ACME",
				Quantity: 4, UnitPrice: 30.00, Fee: 1.00, Currency: "USD",
			},
			want: Event{
				Kind: EventDispose, Class: ClassEquity, Key: "ACME",
				Symbol: "ACME", Count: 4, UnitPrice: 30.00, Fee: 1.00, Currency: "USD",
			},
		},
		{
			name:   "dividend is foreign interest",
			action: models.RawAction{Action: "Dividends", Amount: 8.00, Currency: "USD"},
			want:   Event{Kind: EventDividend, Class: ClassInterestForeign, Amount: 8.00, Currency: "USD"},
		},
		{
			name:   "broker interest is foreign interest",
			action: models.RawAction{Action: "Broker Interest Received", Amount: 0.55, Currency: "USD"},
			want:   Event{Kind: EventDividend, Class: ClassInterestForeign, Amount: 0.55, Currency: "USD"},
		},
		{
			name:   "withholding tax negates the booked amount",
			action: models.RawAction{Action: "Withholding Tax", Amount: -1.20, Currency: "USD"},
			want:   Event{Kind: EventWithholdingTax, Class: ClassInterestForeign, Amount: 1.20, Currency: "USD"},
		},
		{
			name:   "anything else is unknown",
			action: models.RawAction{Action: "Deposits/Withdrawals"},
			want:   Event{Kind: EventUnknown, Description: "Deposits/Withdrawals"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.action))
		})
	}
}

func TestRevolutClassifier(t *testing.T) {
	classifier := NewRevolutClassifier()

	interest := classifier.Classify(models.RawAction{
		Description: "Gross interest earned", Amount: 3.21, Currency: "PLN",
	})
	assert.Equal(t, EventDividend, interest.Kind)
	assert.Equal(t, ClassInterestDomestic, interest.Class)
	assert.Equal(t, 3.21, interest.Amount)

	topUp := classifier.Classify(models.RawAction{Description: "Top-Up"})
	assert.Equal(t, EventUnknown, topUp.Kind)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "acquire", EventAcquire.String())
	assert.Equal(t, "dispose", EventDispose.String())
	assert.Equal(t, "unknown", EventUnknown.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}
