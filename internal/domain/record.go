// Package domain defines the balance-change records the reward dashboard works with.
package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawBalanceRecord is one transaction balance as returned by the upstream provider.
// Numeric values arrive as decimal strings.
type RawBalanceRecord struct {
	Block        RawBlock        `json:"Block"`
	TokenBalance RawTokenBalance `json:"TokenBalance"`
	Transaction  RawTransaction  `json:"Transaction"`
	Reward       string          `json:"reward"`
	RewardUSD    string          `json:"reward_usd"`
}

// RawBlock block the balance change was included in.
type RawBlock struct {
	Time   string `json:"Time"`
	Number int64  `json:"Number"`
}

// RawTokenBalance account balance before and after the transaction.
type RawTokenBalance struct {
	Address          string `json:"Address"`
	PostBalance      string `json:"PostBalance"`
	PreBalance       string `json:"PreBalance"`
	PostBalanceInUSD string `json:"PostBalanceInUSD"`
	PreBalanceInUSD  string `json:"PreBalanceInUSD"`
}

// RawTransaction transaction that caused the balance change.
type RawTransaction struct {
	Hash string `json:"Hash"`
}

// Record is a validated balance change.
type Record struct {
	Timestamp      time.Time
	BlockNumber    int64
	Address        string
	PostBalance    decimal.Decimal
	PreBalance     decimal.Decimal
	PostBalanceUSD decimal.Decimal
	PreBalanceUSD  decimal.Decimal
	TxHash         string
	Reward         decimal.Decimal
	RewardUSD      decimal.Decimal
}

// Normalize validates raw and converts it into a Record.
// Any unparsable field is reported as *InputError.
func Normalize(raw RawBalanceRecord) (Record, error) {
	ts, err := parseTime(raw.Block.Time)
	if err != nil {
		return Record{}, newInputError("Block.Time", raw.Block.Time, err)
	}

	hash := strings.TrimSpace(raw.Transaction.Hash)
	if hash == "" {
		return Record{}, newInputError("Transaction.Hash", raw.Transaction.Hash, errEmptyValue)
	}

	p := parser{}
	rec := Record{
		Timestamp:      ts,
		BlockNumber:    raw.Block.Number,
		Address:        raw.TokenBalance.Address,
		PostBalance:    p.decimal("TokenBalance.PostBalance", raw.TokenBalance.PostBalance),
		PreBalance:     p.decimal("TokenBalance.PreBalance", raw.TokenBalance.PreBalance),
		PostBalanceUSD: p.decimal("TokenBalance.PostBalanceInUSD", raw.TokenBalance.PostBalanceInUSD),
		PreBalanceUSD:  p.decimal("TokenBalance.PreBalanceInUSD", raw.TokenBalance.PreBalanceInUSD),
		TxHash:         hash,
		Reward:         p.decimal("reward", raw.Reward),
		RewardUSD:      p.decimal("reward_usd", raw.RewardUSD),
	}
	if p.err != nil {
		return Record{}, p.err
	}

	return rec, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyValue
	}
	// RFC3339 also accepts fractional seconds on parse.
	return time.Parse(time.RFC3339, s)
}

// Bounds of an accepted amount. Anything outside is not a balance and would make
// fixed-point rendering allocate a string the size of the exponent.
const (
	maxExponent = 64
	maxDigits   = 64
)

// parser keeps the first decimal parse error so Normalize reads top to bottom.
type parser struct {
	err error
}

func (p *parser) decimal(field, value string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	v := strings.TrimSpace(value)
	if v == "" {
		p.err = newInputError(field, value, errEmptyValue)
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.err = newInputError(field, value, err)
		return decimal.Zero
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		p.err = newInputError(field, value, errOutOfRange)
		return decimal.Zero
	}
	if d.NumDigits() > maxDigits {
		p.err = newInputError(field, value, errTooPrecise)
		return decimal.Zero
	}
	if math.IsInf(d.InexactFloat64(), 0) {
		p.err = newInputError(field, value, errOutOfRange)
		return decimal.Zero
	}
	return d
}
