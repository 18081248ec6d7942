package ibkr

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

// FlexQueryResponse is the root element of an Interactive Brokers Flex Query
// report.
type FlexQueryResponse struct {
	XMLName        xml.Name        `xml:"FlexQueryResponse"`
	FlexStatements []FlexStatement `xml:"FlexStatements>FlexStatement"`
}

// FlexStatement holds all the data for one account and period.
type FlexStatement struct {
	XMLName          xml.Name          `xml:"FlexStatement"`
	AccountID        string            `xml:"accountId,attr"`
	Trades           []Trade           `xml:"Trades>Trade"`
	CashTransactions []CashTransaction `xml:"CashTransactions>CashTransaction"`
}

// Trade is one stock trade execution.
type Trade struct {
	AssetCategory string  `xml:"assetCategory,attr"`
	Symbol        string  `xml:"symbol,attr"`
	Description   string  `xml:"description,attr"`
	DateTime      string  `xml:"dateTime,attr"`
	Quantity      float64 `xml:"quantity,attr"`
	TradePrice    float64 `xml:"tradePrice,attr"`
	Currency      string  `xml:"currency,attr"`
	Exchange      string  `xml:"exchange,attr"`
	IBCommission  float64 `xml:"ibCommission,attr"`
	BuySell       string  `xml:"buySell,attr"`
}

// CashTransaction covers dividends, interest and withholding entries.
type CashTransaction struct {
	Type          string  `xml:"type,attr"`
	Description   string  `xml:"description,attr"`
	DateTime      string  `xml:"dateTime,attr"`
	Amount        float64 `xml:"amount,attr"`
	Currency      string  `xml:"currency,attr"`
	LevelOfDetail string  `xml:"levelOfDetail,attr"`
	Symbol        string  `xml:"symbol,attr"`
}

// IBKRParser reads Interactive Brokers Flex Query XML reports. Trades carry
// their commission inline; dividends, broker interest and withholding tax
// arrive as separate cash transactions.
type IBKRParser struct{}

func NewParser() *IBKRParser {
	return &IBKRParser{}
}

func (p *IBKRParser) Parse(file io.Reader) ([]models.RawAction, error) {
	var response FlexQueryResponse
	if err := xml.NewDecoder(file).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode IBKR Flex Query XML: %w", err)
	}

	var actions []models.RawAction
	for _, stmt := range response.FlexStatements {
		for _, trade := range stmt.Trades {
			// Internal currency conversions are not taxable trades.
			if trade.Exchange == "IDEALFX" {
				continue
			}
			action, err := buildTrade(trade)
			if err != nil {
				logger.L.Warn("Skipping malformed IBKR trade", "symbol", trade.Symbol, "error", err)
				continue
			}
			actions = append(actions, action)
		}

		for _, cashTx := range stmt.CashTransactions {
			// Summary rows duplicate the detail rows.
			if cashTx.LevelOfDetail != "DETAIL" {
				continue
			}
			date, err := parseFlexDateTime(cashTx.DateTime)
			if err != nil {
				logger.L.Warn("Skipping malformed IBKR cash transaction", "description", cashTx.Description, "error", err)
				continue
			}
			actions = append(actions, models.RawAction{
				Date:        date,
				Source:      "ibkr",
				Action:      cashTx.Type,
				Symbol:      cashTx.Symbol,
				Description: cashTx.Description,
				Amount:      cashTx.Amount,
				Currency:    cashTx.Currency,
			})
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Date.Before(actions[j].Date)
	})
	return actions, nil
}

// buildTrade maps one execution onto a raw action. Buys fold the commission
// into the per-share basis so it is deducted the year the shares are sold;
// sells keep it as a fee deducted in the sale year.
func buildTrade(trade Trade) (models.RawAction, error) {
	date, err := parseFlexDateTime(trade.DateTime)
	if err != nil {
		return models.RawAction{}, err
	}

	quantity := int(math.Round(math.Abs(trade.Quantity)))
	if quantity == 0 {
		return models.RawAction{}, fmt.Errorf("trade for %s has zero quantity", trade.Symbol)
	}
	commission := math.Abs(trade.IBCommission)

	action := models.RawAction{
		Date:        date,
		Source:      "ibkr",
		Action:      trade.BuySell,
		Symbol:      trade.Symbol,
		Description: trade.Description,
		Quantity:    quantity,
		Currency:    trade.Currency,
	}
	switch trade.BuySell {
	case "BUY":
		action.UnitCost = trade.TradePrice + commission/float64(quantity)
	case "SELL":
		action.UnitPrice = trade.TradePrice
		action.Fee = commission
	}
	return action, nil
}

// parseFlexDateTime parses IBKR's "20060102;150405" stamps; date-only values
// appear on some cash transactions.
func parseFlexDateTime(raw string) (time.Time, error) {
	layout := "20060102;150405"
	if !strings.Contains(raw, ";") {
		layout = "20060102"
	}
	date, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid IBKR datetime %q: %w", raw, err)
	}
	return date, nil
}
