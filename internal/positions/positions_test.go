package positions

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statement = `Action,Time,ISIN,Ticker,Name,No. of shares,Price / share,Currency (Price / share),Total
Market buy,2025-03-03 14:31:02,US0378331005,AAPL,Apple,10,180.50,USD,1805.00
Deposit,2025-03-04 09:00:00,,,,,,,500.00
Market buy,2025-03-05 15:02:10,US88160R1014,TSLA,Tesla,4.5,240.00,USD,1080.00
Limit sell,2025-03-10 18:45:00,US0378331005,AAPL,Apple,10,195.25,USD,1952.50
Dividend (Ordinary),2025-03-12 10:00:00,US0378331005,AAPL,Apple,,,USD,3.20
Market buy,2025-03-15 14:40:33,US88160R1014,TSLA,Tesla,1.5,238.10,USD,357.15
Stop limit sell,2025-03-20 19:10:00,US88160R1014,TSLA,Tesla,2,250.00,USD,500.00
`

func TestFromTrading212(t *testing.T) {
	got, err := FromTrading212(strings.NewReader(statement))
	require.NoError(t, err)

	// AAPL fully closed; only TSLA remains: 4.5 + 1.5 - 2 = 4.
	require.Len(t, got, 1)
	assert.Equal(t, "TSLA", got[0].Ticker)
	assert.InDelta(t, 4.0, got[0].Shares, 1e-9)
	assert.Equal(t, 250.00, got[0].LastPrice)
	assert.Equal(t, "2025-03-20 19:10:00", got[0].LastTime)
}

func TestFromTrading212IgnoresNonTradeRows(t *testing.T) {
	in := `Action,Time,ISIN,Ticker,Name,No. of shares,Price / share,Currency (Price / share),Total
Deposit,2025-01-01 09:00:00,,,,,,,100.00
Interest on cash,2025-01-31 09:00:00,,,,,,,0.42
`
	got, err := FromTrading212(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFromTrading212MissingColumn(t *testing.T) {
	_, err := FromTrading212(strings.NewReader("Action,Time\nMarket buy,2025-01-01\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Position{
		{Ticker: "TSLA", Shares: 4, LastPrice: 250, LastTime: "2025-03-20 19:10:00"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Symbol,Side,Qty,Fill Price,Commission,Closing Time", lines[0])
	assert.Equal(t, "NASDAQ:TSLA,Buy,4,250,0,2025-03-20 19:10:00", lines[1])
}
