package processors

import (
	"fmt"

	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

// PriceSource supplies the current market price for a symbol, used only to
// value positions that were never disposed. Implementations may block on I/O;
// the aggregator itself never fetches anything.
type PriceSource interface {
	CurrentPrice(symbol string) (price float64, currency string, err error)
}

// RemainingPosition values the lots still queued under one key after the
// whole event stream has been replayed. Informational only: unrealized gains
// are not taxable events.
type RemainingPosition struct {
	Key      string  `json:"key"`
	Symbol   string  `json:"symbol,omitempty"`
	Quantity int     `json:"quantity"`
	Value    float64 `json:"value"` // current market value, reporting currency
	Cost     float64 `json:"cost"`  // acquisition cost, reporting currency
}

// AggregationResult is everything one replay produces: the year-keyed tax
// report, the informational remaining positions, and the classification
// diagnostics accumulated along the way.
type AggregationResult struct {
	Report      models.TaxReport    `json:"report"`
	Remaining   []RemainingPosition `json:"remaining,omitempty"`
	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
}

// yearLedger accumulates per-year sums in the reporting currency while the
// event stream is replayed.
type yearLedger struct {
	tradeRevenue     float64
	tradeCost        float64
	cashMovementCost float64
	cryptoRevenue    float64
	cryptoCost       float64
	domesticInterest float64
	foreignInterest  float64
	foreignWithheld  float64
	dividendGross    float64
	dividendWithheld float64
}

// taxRecord maps the ledger onto a TaxRecord. Dividends are taxed like
// foreign interest with withholding credit, so both fold into the foreign
// interest fields; cash-movement fees reduce net trade profit.
func (l *yearLedger) taxRecord() models.TaxRecord {
	return models.TaxRecord{
		TradeRevenue:                  l.tradeRevenue,
		TradeCost:                     l.tradeCost + l.cashMovementCost,
		CryptoRevenue:                 l.cryptoRevenue,
		CryptoCost:                    l.cryptoCost,
		DomesticInterest:              l.domesticInterest,
		ForeignInterest:               l.foreignInterest + l.dividendGross,
		ForeignInterestWithholdingTax: l.foreignWithheld + l.dividendWithheld,
	}
}

// Aggregator replays a chronological stream of raw actions through the lot
// inventory and the exchange-rate table, folding the results into year-keyed
// tax records. Every run owns a private inventory; the classifier, rate table
// and price source are injected per run.
type Aggregator struct {
	classifier ActionClassifier
	rates      *RateTable
	prices     PriceSource // may be nil: remaining positions then carry cost only
	inventory  *LotInventory
}

func NewAggregator(classifier ActionClassifier, rates *RateTable, prices PriceSource) *Aggregator {
	return &Aggregator{
		classifier: classifier,
		rates:      rates,
		prices:     prices,
		inventory:  NewLotInventory(),
	}
}

// Aggregate consumes the actions, oldest first, and produces the aggregation
// result. A missing exchange rate or an over-disposed lot aborts the whole
// pass: both indicate data-integrity problems the caller must fix upstream,
// and the error names the offending event.
func (a *Aggregator) Aggregate(actions []models.RawAction) (*AggregationResult, error) {
	ledgers := make(map[int]*yearLedger)
	var diagnostics []models.Diagnostic

	ledger := func(year int) *yearLedger {
		l, ok := ledgers[year]
		if !ok {
			l = &yearLedger{}
			ledgers[year] = l
		}
		return l
	}

	for _, action := range actions {
		event := a.classifier.Classify(action)
		year := action.Date.Year()

		switch event.Kind {
		case EventAcquire:
			if event.Class == ClassCrypto {
				rate, err := a.rates.Rate(event.Currency, action.Date)
				if err != nil {
					return nil, eventErr(action, event, err)
				}
				// Crypto costs are deductible the year they are incurred.
				ledger(year).cryptoCost += (event.Amount + event.Fee) * rate
				continue
			}
			for i := 0; i < event.Count; i++ {
				a.inventory.Acquire(event.Key, models.Lot{
					Key:      event.Key,
					Symbol:   event.Symbol,
					Date:     action.Date,
					UnitCost: event.UnitCost,
					Currency: event.Currency,
				})
			}

		case EventDispose:
			rate, err := a.rates.Rate(event.Currency, action.Date)
			if err != nil {
				return nil, eventErr(action, event, err)
			}
			l := ledger(year)
			if event.Class == ClassCrypto {
				l.cryptoRevenue += event.Amount * rate
				l.cryptoCost += event.Fee * rate
				continue
			}
			lots, err := a.inventory.Dispose(event.Key, event.Count)
			if err != nil {
				return nil, eventErr(action, event, err)
			}
			// Revenue and cost accumulate separately, not netted per lot:
			// the floor-at-zero rules downstream work on year totals.
			for _, lot := range lots {
				lotRate, err := a.rates.Rate(lot.Currency, lot.Date)
				if err != nil {
					return nil, eventErr(action, event, err)
				}
				l.tradeRevenue += event.UnitPrice * rate
				l.tradeCost += lot.UnitCost * lotRate
			}
			l.tradeCost += event.Fee * rate

		case EventLapse:
			// Informational: basis for vested shares arrives with the
			// subsequent deposit row, not at lapse time.
			logger.L.Debug("Lapse", "date", action.Date.Format("2006-01-02"), "shares", event.Count)

		case EventDividend:
			rate, err := a.rates.Rate(event.Currency, action.Date)
			if err != nil {
				return nil, eventErr(action, event, err)
			}
			l := ledger(year)
			switch event.Class {
			case ClassInterestDomestic:
				l.domesticInterest += event.Amount * rate
			case ClassInterestForeign:
				l.foreignInterest += event.Amount * rate
			default:
				l.dividendGross += event.Amount * rate
			}

		case EventWithholdingTax:
			rate, err := a.rates.Rate(event.Currency, action.Date)
			if err != nil {
				return nil, eventErr(action, event, err)
			}
			if event.Class == ClassInterestForeign {
				ledger(year).foreignWithheld += event.Amount * rate
			} else {
				ledger(year).dividendWithheld += event.Amount * rate
			}

		case EventCashMovement:
			rate, err := a.rates.Rate(event.Currency, action.Date)
			if err != nil {
				return nil, eventErr(action, event, err)
			}
			ledger(year).cashMovementCost += event.Fee * rate

		case EventUnknown:
			// Recoverable: log, surface, contribute nothing. Tax years must
			// still come out for every recognized row.
			diag := models.Diagnostic{
				Date:    action.Date,
				Action:  action.Action,
				Message: fmt.Sprintf("unknown action %q, ignored", event.Description),
			}
			diagnostics = append(diagnostics, diag)
			logger.L.Warn("Unknown action, skipping", "date", action.Date.Format("2006-01-02"), "action", action.Action)
		}
	}

	remaining, remDiags, err := a.valueRemaining()
	if err != nil {
		return nil, err
	}
	diagnostics = append(diagnostics, remDiags...)

	report := make(models.TaxReport, len(ledgers))
	for year, l := range ledgers {
		report[year] = l.taxRecord()
	}
	return &AggregationResult{Report: report, Remaining: remaining, Diagnostics: diagnostics}, nil
}

// valueRemaining prices the never-disposed lots at the current market price
// and the latest available exchange rate.
func (a *Aggregator) valueRemaining() ([]RemainingPosition, []models.Diagnostic, error) {
	var positions []RemainingPosition
	var diagnostics []models.Diagnostic

	for _, key := range a.inventory.Keys() {
		lots := a.inventory.Lots(key)
		position := RemainingPosition{Key: key, Quantity: len(lots), Symbol: lots[0].Symbol}

		// One market value per key; every queued lot is a single share.
		var pricePLN float64
		if a.prices != nil && position.Symbol != "" {
			price, priceCcy, err := a.prices.CurrentPrice(position.Symbol)
			if err != nil {
				diagnostics = append(diagnostics, models.Diagnostic{
					Date:    lots[len(lots)-1].Date,
					Action:  "remaining",
					Message: fmt.Sprintf("no current price for %s: %v", position.Symbol, err),
				})
				logger.L.Warn("No current price for remaining position", "symbol", position.Symbol, "error", err)
			} else {
				latest, err := a.rates.Latest(priceCcy)
				if err != nil {
					return nil, nil, fmt.Errorf("valuing remaining position %q: %w", key, err)
				}
				pricePLN = price * latest
			}
		}

		for _, lot := range lots {
			lotRate, err := a.rates.Rate(lot.Currency, lot.Date)
			if err != nil {
				return nil, nil, fmt.Errorf("valuing remaining position %q: %w", key, err)
			}
			position.Cost += lot.UnitCost * lotRate
			position.Value += pricePLN
		}
		positions = append(positions, position)
	}
	return positions, diagnostics, nil
}

// eventErr decorates a fatal aggregation error with enough context to
// localize the offending event.
func eventErr(action models.RawAction, event Event, err error) error {
	return fmt.Errorf("processing %s action on %s (key %q): %w",
		event.Kind, action.Date.Format("2006-01-02"), event.Key, err)
}
