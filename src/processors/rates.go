package processors

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/username/pitfolio/src/logger"
)

// ReportingCurrency is the currency tax is computed and owed in.
const ReportingCurrency = "PLN"

// MissingRateError reports a date with no exchange-rate coverage at all: the
// requested date precedes the earliest known observation for the currency.
type MissingRateError struct {
	Currency string
	Date     time.Time
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no exchange rate available for %s on or before %s",
		e.Currency, e.Date.Format("2006-01-02"))
}

// rateSeries is a sorted, deduplicated date→rate series for one currency.
type rateSeries struct {
	days  []time.Time
	rates []float64
}

// RateTable maps (currency, date) to the number of reporting-currency units
// per one unit of the source currency. The stored series is already shifted
// the way the NBP archive convention requires: each date carries the rate to
// apply on that date, and dates not present fall back to the latest earlier
// one. The table is built once per aggregation run and read-only afterwards.
type RateTable struct {
	series map[string]*rateSeries
}

func NewRateTable() *RateTable {
	return &RateTable{series: make(map[string]*rateSeries)}
}

// Add inserts one observation. Observations may arrive in any order; an
// observation for an existing (currency, date) pair overwrites the old value.
func (t *RateTable) Add(currency string, day time.Time, rate float64) {
	day = truncateToDay(day)
	s, ok := t.series[currency]
	if !ok {
		s = &rateSeries{}
		t.series[currency] = s
	}
	i := sort.Search(len(s.days), func(i int) bool { return !s.days[i].Before(day) })
	if i < len(s.days) && s.days[i].Equal(day) {
		s.rates[i] = rate
		return
	}
	s.days = append(s.days, time.Time{})
	s.rates = append(s.rates, 0)
	copy(s.days[i+1:], s.days[i:])
	copy(s.rates[i+1:], s.rates[i:])
	s.days[i] = day
	s.rates[i] = rate
}

// Rate returns the rate for the latest known date on or before day. The
// reporting currency is always 1. Asking for a date earlier than the series
// start is a data-coverage problem and returns a MissingRateError.
func (t *RateTable) Rate(currency string, day time.Time) (float64, error) {
	if currency == ReportingCurrency {
		return 1.0, nil
	}
	day = truncateToDay(day)
	s, ok := t.series[currency]
	if !ok || len(s.days) == 0 {
		return 0, &MissingRateError{Currency: currency, Date: day}
	}
	// First index strictly after day; the answer sits just before it.
	i := sort.Search(len(s.days), func(i int) bool { return s.days[i].After(day) })
	if i == 0 {
		return 0, &MissingRateError{Currency: currency, Date: day}
	}
	return s.rates[i-1], nil
}

// Latest returns the most recent known rate for the currency. It is used to
// value remaining positions at current prices.
func (t *RateTable) Latest(currency string) (float64, error) {
	if currency == ReportingCurrency {
		return 1.0, nil
	}
	s, ok := t.series[currency]
	if !ok || len(s.days) == 0 {
		return 0, &MissingRateError{Currency: currency, Date: time.Now()}
	}
	return s.rates[len(s.rates)-1], nil
}

// Currencies returns the currencies with at least one observation.
func (t *RateTable) Currencies() []string {
	currencies := make([]string, 0, len(t.series))
	for ccy := range t.series {
		currencies = append(currencies, ccy)
	}
	sort.Strings(currencies)
	return currencies
}

func truncateToDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// rateFile mirrors the historical exchange rate JSON file layout.
type rateFile struct {
	Root struct {
		Obs []struct {
			TimePeriod string `json:"_TIME_PERIOD"`
			ObsValue   string `json:"_OBS_VALUE"`
			Ccy        string `json:"_CCY"`
		} `json:"Obs"`
	} `json:"root"`
}

// LoadRateTable reads the historical exchange rate file into a fresh table.
// Call once at startup after config is loaded; each aggregation run receives
// the table as an explicit collaborator.
func LoadRateTable(filePath string) (*RateTable, error) {
	logger.L.Info("Loading historical exchange rates", "path", filePath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading historical exchange rate file '%s': %w", filePath, err)
	}

	var file rateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error unmarshalling historical exchange rates from '%s': %w", filePath, err)
	}

	table := NewRateTable()
	for _, obs := range file.Root.Obs {
		day, err := time.Parse("2006-01-02", obs.TimePeriod)
		if err != nil {
			logger.L.Warn("Skipping rate observation with invalid date", "date", obs.TimePeriod, "error", err)
			continue
		}
		rate, err := strconv.ParseFloat(obs.ObsValue, 64)
		if err != nil {
			logger.L.Warn("Skipping rate observation with invalid value", "currency", obs.Ccy, "date", obs.TimePeriod, "value", obs.ObsValue, "error", err)
			continue
		}
		table.Add(obs.Ccy, day, rate)
	}
	logger.L.Info("Historical exchange rates loaded", "path", filePath, "observationCount", len(file.Root.Obs))
	return table, nil
}
