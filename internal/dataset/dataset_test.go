package dataset

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/stakeview/internal/domain"
)

func raw(ts, hash, post, pre, reward, rewardUSD string) domain.RawBalanceRecord {
	return domain.RawBalanceRecord{
		Block: domain.RawBlock{Time: ts, Number: 1},
		TokenBalance: domain.RawTokenBalance{
			Address:          "0xvalidator",
			PostBalance:      post,
			PreBalance:       pre,
			PostBalanceInUSD: "0",
			PreBalanceInUSD:  "0",
		},
		Transaction: domain.RawTransaction{Hash: hash},
		Reward:      reward,
		RewardUSD:   rewardUSD,
	}
}

func exampleRaw() []domain.RawBalanceRecord {
	return []domain.RawBalanceRecord{
		raw("2024-01-01T00:00:00Z", "0xjan1", "10.5", "10.0", "0.5", "1000.00"),
		raw("2024-01-02T00:00:00Z", "0xjan2", "11.0", "10.5", "0.5", "1050.00"),
	}
}

func TestBuild_ExampleScenario(t *testing.T) {
	ds, err := Build(exampleRaw())
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	assert.Equal(t, "0xjan2", ds.At(0).TxHash)
	assert.Equal(t, "0xjan1", ds.At(1).TxHash)
	assert.True(t, decimal.RequireFromString("11.0").Equal(ds.LatestBalance()))
	assert.True(t, decimal.RequireFromString("10.0").Equal(ds.PriorBalance()))
	assert.True(t, decimal.RequireFromString("1").Equal(ds.TotalReward()))
	assert.True(t, decimal.RequireFromString("2050").Equal(ds.TotalRewardUSD()))
}

func TestBuild_Empty(t *testing.T) {
	for _, in := range [][]domain.RawBalanceRecord{nil, {}} {
		ds, err := Build(in)
		require.NoError(t, err)
		assert.True(t, ds.IsEmpty())
		assert.True(t, ds.LatestBalance().IsZero())
		assert.True(t, ds.PriorBalance().IsZero())
	}
}

func TestBuild_SortedNewestFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	offsets := []int{5, 1, 9, 3, 3, 7, 0, 2, 8, 6}
	in := make([]domain.RawBalanceRecord, 0, len(offsets))
	for i, off := range offsets {
		ts := base.Add(time.Duration(off) * time.Hour).Format(time.RFC3339)
		in = append(in, raw(ts, fmt.Sprintf("0x%d", i), "1", "1", "0", "0"))
	}

	ds, err := Build(in)
	require.NoError(t, err)
	require.Equal(t, len(offsets), ds.Len())

	for i := 1; i < ds.Len(); i++ {
		assert.False(t, ds.At(i).Timestamp.After(ds.At(i-1).Timestamp), "index %d is newer than %d", i, i-1)
	}
}

func TestBuild_StableForEqualTimestamps(t *testing.T) {
	in := []domain.RawBalanceRecord{
		raw("2024-01-01T00:00:00Z", "0xa", "1", "1", "0", "0"),
		raw("2024-01-02T00:00:00Z", "0xb", "1", "1", "0", "0"),
		raw("2024-01-01T00:00:00Z", "0xc", "1", "1", "0", "0"),
		raw("2024-01-01T00:00:00Z", "0xd", "1", "1", "0", "0"),
	}

	ds, err := Build(in)
	require.NoError(t, err)

	var hashes []string
	for _, r := range ds.Records() {
		hashes = append(hashes, r.TxHash)
	}
	assert.Equal(t, []string{"0xb", "0xa", "0xc", "0xd"}, hashes)
}

func TestBuild_FailsOnFirstInvalidRecord(t *testing.T) {
	in := exampleRaw()
	in = append(in, raw("not a time", "0xbad", "1", "1", "0", "0"))

	ds, err := Build(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInput))
	assert.Contains(t, err.Error(), "record 2")
	assert.True(t, ds.IsEmpty())
}

func TestDataset_SliceDoesNotAlias(t *testing.T) {
	ds, err := Build(exampleRaw())
	require.NoError(t, err)

	view := ds.Slice(0, 1)
	view = append(view, domain.Record{TxHash: "0xinjected"})
	require.Len(t, view, 2)
	assert.Equal(t, "0xjan1", ds.At(1).TxHash)

	recs := ds.Records()
	recs[0].TxHash = "0xmutated"
	assert.Equal(t, "0xjan2", ds.At(0).TxHash)
}

func TestFromRecords(t *testing.T) {
	older := domain.Record{Timestamp: time.Unix(100, 0), TxHash: "old", PreBalance: decimal.NewFromInt(3)}
	newer := domain.Record{Timestamp: time.Unix(200, 0), TxHash: "new", PostBalance: decimal.NewFromInt(4)}

	ds := FromRecords([]domain.Record{older, newer})
	assert.Equal(t, "new", ds.At(0).TxHash)
	assert.True(t, decimal.NewFromInt(4).Equal(ds.LatestBalance()))
	assert.True(t, decimal.NewFromInt(3).Equal(ds.PriorBalance()))
}
