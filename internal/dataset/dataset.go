// Package dataset holds the ordered reward history of one validator.
package dataset

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/stakeview/internal/domain"
)

// Dataset is an immutable sequence of records ordered newest first.
type Dataset struct {
	records []domain.Record
}

// Build normalizes raw records and orders them by timestamp, newest first.
// The first invalid record fails the whole build.
func Build(raw []domain.RawBalanceRecord) (Dataset, error) {
	records := make([]domain.Record, 0, len(raw))
	for i, r := range raw {
		rec, err := domain.Normalize(r)
		if err != nil {
			return Dataset{}, errors.Wrapf(err, "record %d", i)
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	return Dataset{records: records}, nil
}

// FromRecords orders already normalized records the same way Build does.
func FromRecords(records []domain.Record) Dataset {
	cp := make([]domain.Record, len(records))
	copy(cp, records)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Timestamp.After(cp[j].Timestamp)
	})
	return Dataset{records: cp}
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.records)
}

// IsEmpty reports whether the dataset has no records.
func (d Dataset) IsEmpty() bool {
	return len(d.records) == 0
}

// At returns the i-th record in newest-first order.
func (d Dataset) At(i int) domain.Record {
	return d.records[i]
}

// Records returns a copy of the ordered records.
func (d Dataset) Records() []domain.Record {
	cp := make([]domain.Record, len(d.records))
	copy(cp, d.records)
	return cp
}

// Slice returns records[start:end] as a read-only view.
// Capacity is capped so appending to the result never writes into the dataset.
func (d Dataset) Slice(start, end int) []domain.Record {
	return d.records[start:end:end]
}

// LatestBalance is the post balance of the newest record, zero when empty.
func (d Dataset) LatestBalance() decimal.Decimal {
	if len(d.records) == 0 {
		return decimal.Zero
	}
	return d.records[0].PostBalance
}

// PriorBalance is the pre balance of the oldest record, zero when empty.
func (d Dataset) PriorBalance() decimal.Decimal {
	if len(d.records) == 0 {
		return decimal.Zero
	}
	return d.records[len(d.records)-1].PreBalance
}

// TotalReward sums the native-unit rewards.
func (d Dataset) TotalReward() decimal.Decimal {
	total := decimal.Zero
	for _, r := range d.records {
		total = total.Add(r.Reward)
	}
	return total
}

// TotalRewardUSD sums the USD rewards.
func (d Dataset) TotalRewardUSD() decimal.Decimal {
	total := decimal.Zero
	for _, r := range d.records {
		total = total.Add(r.RewardUSD)
	}
	return total
}
