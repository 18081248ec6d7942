package revolut

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

// RevolutParser reads Revolut savings-account statements. Only the completed
// date, description and "Money in" columns matter; the classifier later keeps
// just the gross-interest credits.
type RevolutParser struct{}

func NewParser() *RevolutParser {
	return &RevolutParser{}
}

var dateLayouts = []string{
	"2 Jan 2006",
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
}

func (p *RevolutParser) Parse(file io.Reader) ([]models.RawAction, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read Revolut CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Completed Date", "Description", "Money in"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("revolut statement is missing the %q column", required)
		}
	}

	field := func(record []string, name string) string {
		i := columns[name]
		if i >= len(record) {
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
			return nil, fmt.Errorf("failed to read Revolut CSV record: %w", err)
		}

		date, err := parseDate(field(record, "Completed Date"))
		if err != nil {
			logger.L.Warn("Skipping Revolut row with invalid date", "date", field(record, "Completed Date"))
			continue
		}

		actions = append(actions, models.RawAction{
			Date:        date,
			Source:      "revolut",
			Action:      "Interest",
			Description: field(record, "Description"),
			Amount:      parseMoneyIn(field(record, "Money in")),
			Currency:    "PLN",
		})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Date.Before(actions[j].Date)
	})
	return actions, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", raw)
}

var moneyInRe = regexp.MustCompile(`[+-]?\d+(?:\.\d*)?`)

func parseMoneyIn(raw string) float64 {
	match := moneyInRe.FindString(strings.ReplaceAll(raw, ",", ""))
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.TrimPrefix(match, "+"), 64)
	if err != nil {
		return 0
	}
	return value
}
