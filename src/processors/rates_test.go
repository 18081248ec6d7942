package processors

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRateTableNearestPriorFallback(t *testing.T) {
	table := NewRateTable()
	table.Add("USD", day("2024-01-02"), 4.00)
	table.Add("USD", day("2024-01-05"), 4.20)
	table.Add("USD", day("2024-01-10"), 4.10)

	tests := []struct {
		name string
		date string
		want float64
	}{
		{"exact hit", "2024-01-05", 4.20},
		{"gap falls back to prior", "2024-01-04", 4.00},
		{"weekend gap", "2024-01-07", 4.20},
		{"after last observation", "2024-03-01", 4.10},
		{"first observation", "2024-01-02", 4.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Rate("USD", day(tt.date))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateTableMissingCoverage(t *testing.T) {
	table := NewRateTable()
	table.Add("USD", day("2024-01-02"), 4.00)

	t.Run("date before earliest observation", func(t *testing.T) {
		_, err := table.Rate("USD", day("2023-12-29"))
		var missing *MissingRateError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "USD", missing.Currency)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := table.Rate("JPY", day("2024-01-05"))
		var missing *MissingRateError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "JPY", missing.Currency)
	})
}

func TestRateTableReportingCurrencyIsAlwaysOne(t *testing.T) {
	table := NewRateTable()

	got, err := table.Rate(ReportingCurrency, day("1995-06-01"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	latest, err := table.Latest(ReportingCurrency)
	require.NoError(t, err)
	assert.Equal(t, 1.0, latest)
}

func TestRateTableOutOfOrderInsertAndOverwrite(t *testing.T) {
	table := NewRateTable()
	table.Add("EUR", day("2024-02-10"), 4.30)
	table.Add("EUR", day("2024-02-01"), 4.25)
	table.Add("EUR", day("2024-02-05"), 4.28)
	table.Add("EUR", day("2024-02-05"), 4.29) // correction overwrites

	got, err := table.Rate("EUR", day("2024-02-06"))
	require.NoError(t, err)
	assert.Equal(t, 4.29, got)

	got, err = table.Rate("EUR", day("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, 4.25, got)
}

func TestRateTableLatest(t *testing.T) {
	table := NewRateTable()
	table.Add("USD", day("2024-01-02"), 4.00)
	table.Add("USD", day("2024-06-03"), 3.95)

	latest, err := table.Latest("USD")
	require.NoError(t, err)
	assert.Equal(t, 3.95, latest)

	_, err = table.Latest("CHF")
	var missing *MissingRateError
	assert.ErrorAs(t, err, &missing)
}

func TestLoadRateTable(t *testing.T) {
	content := `{
		"root": {
			"Obs": [
				{"_TIME_PERIOD": "2024-01-02", "_OBS_VALUE": "4.00", "_CCY": "USD"},
				{"_TIME_PERIOD": "2024-01-03", "_OBS_VALUE": "4.05", "_CCY": "USD"},
				{"_TIME_PERIOD": "2024-01-02", "_OBS_VALUE": "4.35", "_CCY": "EUR"},
				{"_TIME_PERIOD": "not-a-date", "_OBS_VALUE": "4.00", "_CCY": "USD"},
				{"_TIME_PERIOD": "2024-01-04", "_OBS_VALUE": "garbage", "_CCY": "USD"}
			]
		}
	}`
	path := filepath.Join(t.TempDir(), "rates.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadRateTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"EUR", "USD"}, table.Currencies())

	got, err := table.Rate("USD", day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 4.05, got)

	// The malformed rows are skipped, so the 4th still falls back to the 3rd.
	got, err = table.Rate("USD", day("2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 4.05, got)
}

func TestLoadRateTableMissingFile(t *testing.T) {
	_, err := LoadRateTable(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
