package coinbase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `You can use this transaction report to inform your likely tax obligations.

User,someone@example.com
Timestamp,Transaction Type,Asset,Quantity Transacted,Price Currency,Price at Transaction,Subtotal,Total (inclusive of fees and/or spread),Fees and/or Spread,Notes
2023-05-10 09:13:20 UTC,Advanced Trade Buy,BTC,0.05,EUR,"€24,080.80","€1,204.04","€1,211.24",€7.20,Bought 0.05 BTC
2023-11-02 17:45:01 UTC,Advanced Trade Sell,BTC,0.05,EUR,"€30,000.00","€1,500.00","€1,491.00",€9.00,Sold 0.05 BTC
not-a-date,Advanced Trade Buy,ETH,1,EUR,€100,€100,€101,€1,bad row
`

func TestParseCoinbaseExport(t *testing.T) {
	parser := NewParser()
	actions, err := parser.Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, actions, 2, "the malformed row is skipped")

	buy := actions[0]
	assert.Equal(t, "Advanced Trade Buy", buy.Action)
	assert.Equal(t, "BTC", buy.Symbol)
	assert.Equal(t, "coinbase", buy.Source)
	assert.Equal(t, 1204.04, buy.Amount)
	assert.Equal(t, 7.20, buy.Fee)
	assert.Equal(t, "EUR", buy.Currency)
	assert.Equal(t, 2023, buy.Date.Year())

	sell := actions[1]
	assert.Equal(t, "Advanced Trade Sell", sell.Action)
	assert.Equal(t, 1500.00, sell.Amount)
	assert.Equal(t, 9.00, sell.Fee)
}

func TestParseCoinbaseMissingHeader(t *testing.T) {
	parser := NewParser()
	_, err := parser.Parse(strings.NewReader("just a banner line\nwith no header at all\n"))
	assert.Error(t, err)
}

func TestParsePrefixedAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"€1,204.04", 1204.04},
		{"$42.00", 42},
		{"-€7.20", -7.20},
		{"99", 99},
		{"", 0},
		{"free", 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePrefixedAmount(tt.raw))
		})
	}
}
