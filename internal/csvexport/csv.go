// Package csvexport renders reward records as CSV text.
//
// The dialect is minimal: every cell is wrapped in double quotes and nothing is
// escaped inside the quotes. Transaction hashes and formatted numbers never
// contain quotes or newlines.
package csvexport

import (
	"strings"

	"github.com/vadiminshakov/stakeview/internal/domain"
)

const (
	// TimeLayout is the Block Time rendering, always in UTC.
	TimeLayout = "2006-01-02 15:04:05 UTC"

	balancePlaces = 6
	usdPlaces     = 2

	rowSeparator  = "\n"
	cellSeparator = ","
)

// Header is the fixed column order.
var Header = []string{
	"Block Time",
	"Post Balance",
	"Pre Balance",
	"Rewards in ETH",
	"Rewards in USD",
	"Transaction Hash",
}

// ToCSV renders records in the given order. The header row is always present.
func ToCSV(records []domain.Record) string {
	var b strings.Builder
	writeRow(&b, Header)
	for _, r := range records {
		b.WriteString(rowSeparator)
		writeRow(&b, Row(r))
	}
	return b.String()
}

// Row returns the cells of one record in Header order.
func Row(r domain.Record) []string {
	return []string{
		r.Timestamp.UTC().Format(TimeLayout),
		r.PostBalance.StringFixed(balancePlaces),
		r.PreBalance.StringFixed(balancePlaces),
		r.Reward.StringFixed(balancePlaces),
		r.RewardUSD.StringFixed(usdPlaces),
		r.TxHash,
	}
}

// Filename is the download name for an address's export.
func Filename(address string) string {
	return "validator-" + domain.Prefix(address, 10) + "-rewards.csv"
}

func writeRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteString(cellSeparator)
		}
		b.WriteByte('"')
		b.WriteString(c)
		b.WriteByte('"')
	}
}
