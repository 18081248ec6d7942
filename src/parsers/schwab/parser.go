package schwab

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

const dateLayout = "01/02/2006"

// SchwabParser reads Charles Schwab equity-award history exports. The export
// is newest-first and splits one action across a main row plus continuation
// rows with an empty Date cell; continuation rows carry award details such as
// Type, Shares, SalePrice and PurchasePrice.
type SchwabParser struct{}

func NewParser() *SchwabParser {
	return &SchwabParser{}
}

func (p *SchwabParser) Parse(file io.Reader) ([]models.RawAction, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read Schwab CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("schwab export has no data rows")
	}

	columns := indexColumns(records[0])
	if _, ok := columns["Date"]; !ok {
		return nil, fmt.Errorf("schwab export is missing a Date column")
	}

	var actions []models.RawAction
	var current map[string]string
	flush := func() {
		if current == nil {
			return
		}
		action, err := buildAction(current)
		if err != nil {
			logger.L.Warn("Skipping malformed Schwab row", "error", err)
		} else {
			actions = append(actions, action)
		}
		current = nil
	}

	for _, record := range records[1:] {
		fields := fieldsByName(columns, record)
		if _, err := time.Parse(dateLayout, fields["Date"]); err == nil {
			flush()
			current = fields
			continue
		}
		// Continuation row: fill in cells the main row left empty.
		if current != nil {
			for name, value := range fields {
				if value != "" && current[name] == "" {
					current[name] = value
				}
			}
		}
	}
	flush()

	// The export is reverse-chronological including within a day, so a plain
	// date sort would leave same-day rows backwards (a sale replayed before
	// its deposit). Reverse the whole slice first, then let a stable sort
	// repair rows the export itself misplaced.
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Date.Before(actions[j].Date)
	})
	return actions, nil
}

func buildAction(fields map[string]string) (models.RawAction, error) {
	date, err := time.Parse(dateLayout, fields["Date"])
	if err != nil {
		return models.RawAction{}, fmt.Errorf("invalid date %q: %w", fields["Date"], err)
	}

	action := models.RawAction{
		Date:        date,
		Source:      "schwab",
		Action:      fields["Action"],
		Symbol:      fields["Symbol"],
		Description: fields["Description"],
		Currency:    "USD",
	}

	// A sale names the award type it sells; that text, not the symbol alone,
	// is the lot-matching key.
	if fields["Type"] != "" {
		action.Description = fields["Type"]
	}

	quantity := fields["Quantity"]
	if fields["Shares"] != "" {
		quantity = fields["Shares"]
	}
	if quantity != "" {
		n, err := strconv.ParseFloat(strings.ReplaceAll(quantity, ",", ""), 64)
		if err != nil {
			return models.RawAction{}, fmt.Errorf("invalid share count %q: %w", quantity, err)
		}
		action.Quantity = int(n)
	}

	for name, dst := range map[string]*float64{
		"Amount":             &action.Amount,
		"SalePrice":          &action.UnitPrice,
		"Sale Price":         &action.UnitPrice,
		"PurchasePrice":      &action.UnitCost,
		"Purchase Price":     &action.UnitCost,
		"FeesAndCommissions": &action.Fee,
		"Fees & Commissions": &action.Fee,
	} {
		raw := fields[name]
		if raw == "" {
			continue
		}
		value, currency, err := parseMoney(raw)
		if err != nil {
			return models.RawAction{}, fmt.Errorf("invalid amount %q in column %s: %w", raw, name, err)
		}
		*dst = value
		if currency != "" {
			action.Currency = currency
		}
	}
	// Fees arrive negative in the export; the engine wants a magnitude.
	if action.Fee < 0 {
		action.Fee = -action.Fee
	}
	return action, nil
}

var moneyRe = regexp.MustCompile(`^(-?)([$€£]?)([\d,]+(?:\.\d+)?)$`)

var currencySymbols = map[string]string{"$": "USD", "€": "EUR", "£": "GBP"}

// parseMoney parses amounts like "-$1,234.56" into a signed value and an ISO
// currency code inferred from the symbol, if any.
func parseMoney(raw string) (float64, string, error) {
	matches := moneyRe.FindStringSubmatch(strings.TrimSpace(raw))
	if matches == nil {
		return 0, "", fmt.Errorf("unparseable money amount")
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(matches[3], ",", ""), 64)
	if err != nil {
		return 0, "", err
	}
	if matches[1] == "-" {
		value = -value
	}
	return value, currencySymbols[matches[2]], nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	return columns
}

func fieldsByName(columns map[string]int, record []string) map[string]string {
	fields := make(map[string]string, len(columns))
	for name, i := range columns {
		if i < len(record) {
			fields[name] = strings.TrimSpace(record[i])
		}
	}
	return fields
}
