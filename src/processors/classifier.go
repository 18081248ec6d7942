package processors

import (
	"strings"

	"github.com/username/pitfolio/src/models"
)

// EventKind is the closed set of ownership-affecting event types the
// aggregator understands.
type EventKind int

const (
	EventAcquire EventKind = iota
	EventDispose
	EventLapse
	EventDividend
	EventWithholdingTax
	EventCashMovement
	EventUnknown
)

func (k EventKind) String() string {
	switch k {
	case EventAcquire:
		return "acquire"
	case EventDispose:
		return "dispose"
	case EventLapse:
		return "lapse"
	case EventDividend:
		return "dividend"
	case EventWithholdingTax:
		return "withholding_tax"
	case EventCashMovement:
		return "cash_movement"
	default:
		return "unknown"
	}
}

// AssetClass routes an event's amounts into the right ledger basket. Equity
// trades are lot-matched; crypto costs are recognized when incurred; interest
// splits by jurisdiction because withholding credit applies only abroad.
type AssetClass int

const (
	ClassEquity AssetClass = iota
	ClassCrypto
	ClassInterestDomestic
	ClassInterestForeign
)

// Event is a classified transaction ready for aggregation. Only the fields
// relevant to its Kind are populated.
type Event struct {
	Kind  EventKind
	Class AssetClass
	Key         string // lot-matching key: grant type or symbol
	Symbol string
	Count  int
	UnitCost    float64 // acquisition price per unit, source currency
	UnitPrice   float64 // disposal price per unit, source currency
	Amount      float64 // cash amount, source currency
	Fee         float64 // fees and commissions, never negative
	Currency    string
	Description string
}

// ActionClassifier maps a normalized transaction record to an Event. It is a
// pure function of the action's textual fields; each broker format supplies
// its own mapping.
type ActionClassifier interface {
	Classify(action models.RawAction) Event
}

// SchwabClassifier classifies Charles Schwab equity-award export rows.
type SchwabClassifier struct{}

func NewSchwabClassifier() *SchwabClassifier { return &SchwabClassifier{} }

func (c *SchwabClassifier) Classify(action models.RawAction) Event {
	switch action.Action {
	case "Deposit":
		// Grant type (ESPP, RS, ...) is the lot-matching key: a sale row
		// names the award type it sells, not the symbol alone.
		return Event{
			Kind:     EventAcquire,
			Class:    ClassEquity,
			Key:      action.Description,
			Symbol:   action.Symbol,
			Count:    action.Quantity,
			UnitCost: action.UnitCost,
			Currency: action.Currency,
		}
	case "Sale":
		return Event{
			Kind:      EventDispose,
			Class:     ClassEquity,
			Key:       action.Description,
			Symbol:    action.Symbol,
			Count:     action.Quantity,
			UnitPrice: action.UnitPrice,
			Fee:       action.Fee,
			Currency:  action.Currency,
		}
	case "Lapse":
		return Event{Kind: EventLapse, Count: action.Quantity}
	case "Dividend":
		return Event{
			Kind:     EventDividend,
			Class:    ClassEquity,
			Amount:   action.Amount,
			Currency: action.Currency,
		}
	case "Tax Withholding":
		// The export books withheld tax as a negative cash amount.
		return Event{
			Kind:     EventWithholdingTax,
			Class:    ClassEquity,
			Amount:   -action.Amount,
			Currency: action.Currency,
		}
	case "Wire Transfer":
		return Event{
			Kind:     EventCashMovement,
			Amount:   action.Amount,
			Fee:      action.Fee,
			Currency: action.Currency,
		}
	default:
		return Event{Kind: EventUnknown, Description: action.Action}
	}
}

// CoinbaseClassifier classifies Coinbase advanced-trade rows. Crypto costs
// are deductible when incurred, so both sides carry ClassCrypto and the
// aggregator books them without lot matching.
type CoinbaseClassifier struct{}

func NewCoinbaseClassifier() *CoinbaseClassifier { return &CoinbaseClassifier{} }

func (c *CoinbaseClassifier) Classify(action models.RawAction) Event {
	switch action.Action {
	case "Advanced Trade Buy":
		return Event{
			Kind:     EventAcquire,
			Class:    ClassCrypto,
			Key:      action.Symbol,
			Symbol:   action.Symbol,
			Amount:   action.Amount,
			Fee:      action.Fee,
			Currency: action.Currency,
		}
	case "Advanced Trade Sell":
		return Event{
			Kind:     EventDispose,
			Class:    ClassCrypto,
			Key:      action.Symbol,
			Symbol:   action.Symbol,
			Amount:   action.Amount,
			Fee:      action.Fee,
			Currency: action.Currency,
		}
	default:
		return Event{Kind: EventUnknown, Description: action.Action}
	}
}

// IBKRClassifier classifies Interactive Brokers Flex Query records. Shares
// are lot-matched per symbol; dividends, broker interest and their withheld
// tax are all settled abroad, so they land in the foreign-interest basket.
type IBKRClassifier struct{}

func NewIBKRClassifier() *IBKRClassifier { return &IBKRClassifier{} }

func (c *IBKRClassifier) Classify(action models.RawAction) Event {
	switch action.Action {
	case "BUY":
		return Event{
			Kind:     EventAcquire,
			Class:    ClassEquity,
			Key:      action.Symbol,
			Symbol:   action.Symbol,
			Count:    action.Quantity,
			UnitCost: action.UnitCost,
			Currency: action.Currency,
		}
	case "SELL":
		return Event{
			Kind:      EventDispose,
			Class:     ClassEquity,
			Key:       action.Symbol,
			Symbol:    action.Symbol,
			Count:     action.Quantity,
			UnitPrice: action.UnitPrice,
			Fee:       action.Fee,
			Currency:  action.Currency,
		}
	case "Dividends", "Broker Interest Received":
		return Event{
			Kind:     EventDividend,
			Class:    ClassInterestForeign,
			Amount:   action.Amount,
			Currency: action.Currency,
		}
	case "Withholding Tax":
		// The report books withheld tax as a negative cash amount.
		return Event{
			Kind:     EventWithholdingTax,
			Class:    ClassInterestForeign,
			Amount:   -action.Amount,
			Currency: action.Currency,
		}
	default:
		return Event{Kind: EventUnknown, Description: action.Action}
	}
}

// RevolutClassifier classifies Revolut savings statements. Only gross
// interest credits matter for the filing; everything else is unknown.
type RevolutClassifier struct{}

func NewRevolutClassifier() *RevolutClassifier { return &RevolutClassifier{} }

func (c *RevolutClassifier) Classify(action models.RawAction) Event {
	if strings.HasPrefix(action.Description, "Gross interest") {
		return Event{
			Kind:     EventDividend,
			Class:    ClassInterestDomestic,
			Amount:   action.Amount,
			Currency: action.Currency,
		}
	}
	return Event{Kind: EventUnknown, Description: action.Description}
}
