package coinbase

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

// CoinbaseParser reads Coinbase transaction exports. The file starts with a
// few preamble lines before the real CSV header, and money columns carry a
// currency symbol prefix.
type CoinbaseParser struct{}

func NewParser() *CoinbaseParser {
	return &CoinbaseParser{}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (p *CoinbaseParser) Parse(file io.Reader) ([]models.RawAction, error) {
	reader := csv.NewReader(skipPreamble(file))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read Coinbase CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Timestamp", "Transaction Type"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("coinbase export is missing the %s column", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var actions []models.RawAction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read Coinbase CSV record: %w", err)
		}

		date, err := parseTimestamp(field(record, "Timestamp"))
		if err != nil {
			logger.L.Warn("Skipping Coinbase row with invalid timestamp", "timestamp", field(record, "Timestamp"))
			continue
		}

		actions = append(actions, models.RawAction{
			Date:        date,
			Source:      "coinbase",
			Action:      field(record, "Transaction Type"),
			Symbol:      field(record, "Asset"),
			Description: field(record, "Notes"),
			Amount:      parsePrefixedAmount(field(record, "Subtotal")),
			Fee:         parsePrefixedAmount(field(record, "Fees and/or Spread")),
			Currency:    field(record, "Price Currency"),
		})
	}
	return actions, nil
}

// skipPreamble drops the banner lines Coinbase puts before the CSV header.
func skipPreamble(file io.Reader) io.Reader {
	scanner := bufio.NewScanner(file)
	var b strings.Builder
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if !found && !strings.HasPrefix(line, "Timestamp,") {
			continue
		}
		found = true
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.NewReader(b.String())
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp %q", raw)
}

var amountRe = regexp.MustCompile(`-?[\d,]+(?:\.\d+)?`)

// parsePrefixedAmount extracts the numeric part of values like "€1,204.04".
func parsePrefixedAmount(raw string) float64 {
	match := amountRe.FindString(raw)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return value
}
