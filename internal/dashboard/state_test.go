package dashboard

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/stakeview/internal/domain"
	"github.com/vadiminshakov/stakeview/internal/export"
)

const address = "0x4838b106fce9647bdf1e7877bf73ce8b0bad5f97"

func raw(ts, hash, post, pre, reward, rewardUSD string) domain.RawBalanceRecord {
	return domain.RawBalanceRecord{
		Block: domain.RawBlock{Time: ts, Number: 7},
		TokenBalance: domain.RawTokenBalance{
			Address:          address,
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

func manyRaw(n int) []domain.RawBalanceRecord {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.RawBalanceRecord, n)
	for i := range out {
		ts := base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		out[i] = raw(ts, fmt.Sprintf("0x%d", i), fmt.Sprintf("%d", i+1), fmt.Sprintf("%d", i), "1", "2")
	}
	return out
}

func loaded(t *testing.T, rawRecords []domain.RawBalanceRecord) State {
	t.Helper()
	s, id := New(address, 10).BeginFetch()
	s = s.CompleteFetch(id, rawRecords, nil)
	require.NoError(t, s.Err)
	return s
}

func assertAggregatesTrackDataset(t *testing.T, s State) {
	t.Helper()
	if s.Dataset.IsEmpty() {
		assert.True(t, s.Dataset.LatestBalance().IsZero())
		assert.True(t, s.Dataset.PriorBalance().IsZero())
		return
	}
	assert.True(t, s.Dataset.At(0).PostBalance.Equal(s.Dataset.LatestBalance()))
	assert.True(t, s.Dataset.At(s.Dataset.Len()-1).PreBalance.Equal(s.Dataset.PriorBalance()))
}

func TestState_ExampleScenario(t *testing.T) {
	s := loaded(t, exampleRaw())

	assert.True(t, decimal.RequireFromString("11.0").Equal(s.Dataset.LatestBalance()))
	assert.True(t, decimal.RequireFromString("10.0").Equal(s.Dataset.PriorBalance()))

	s = s.WithPageSize(1).WithPage(2)
	page := s.Page()
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "0xjan1", page.Rows[0].TxHash)
}

func TestState_FetchResetsPage(t *testing.T) {
	s := loaded(t, manyRaw(30)).WithPage(3)
	require.Equal(t, 3, s.PageIndex)

	s, id := s.BeginFetch()
	assert.True(t, s.Loading)
	s = s.CompleteFetch(id, manyRaw(25), nil)

	assert.False(t, s.Loading)
	assert.Equal(t, 1, s.PageIndex)
	assert.Equal(t, 25, s.Dataset.Len())
	assertAggregatesTrackDataset(t, s)
}

func TestState_PageSizeResetsPage(t *testing.T) {
	s := loaded(t, manyRaw(30)).WithPage(2).WithPageSize(25)
	assert.Equal(t, 1, s.PageIndex)
	assert.Equal(t, 25, s.PageSize)
}

func TestState_WithPageClamps(t *testing.T) {
	s := loaded(t, manyRaw(30))
	assert.Equal(t, 3, s.WithPage(99).PageIndex)
	assert.Equal(t, 1, s.WithPage(0).PageIndex)
	assert.Equal(t, 1, New(address, 10).WithPage(5).PageIndex)
}

func TestState_StaleResponseIsDiscarded(t *testing.T) {
	s := New(address, 10)
	s, slow := s.BeginFetch()
	s, fast := s.BeginFetch()

	s = s.CompleteFetch(fast, exampleRaw(), nil)
	require.Equal(t, 2, s.Dataset.Len())

	s = s.CompleteFetch(slow, manyRaw(30), nil)
	assert.Equal(t, 2, s.Dataset.Len())
	assert.Equal(t, "0xjan2", s.Dataset.At(0).TxHash)
	assertAggregatesTrackDataset(t, s)
}

func TestState_StaleResponseDoesNotClearLoading(t *testing.T) {
	s := New(address, 10)
	s, slow := s.BeginFetch()
	s, _ = s.BeginFetch()

	s = s.CompleteFetch(slow, exampleRaw(), nil)
	assert.True(t, s.Loading)
	assert.True(t, s.Dataset.IsEmpty())
}

func TestState_FailedFetchKeepsDataset(t *testing.T) {
	s := loaded(t, exampleRaw())

	s, id := s.BeginFetch()
	s = s.CompleteFetch(id, nil, errors.New("provider down"))
	assert.EqualError(t, s.Err, "provider down")
	assert.False(t, s.Loading)
	assert.Equal(t, 2, s.Dataset.Len())

	s, id = s.BeginFetch()
	assert.NoError(t, s.Err)
	bad := append(exampleRaw(), raw("2024-01-03T00:00:00Z", "0xbad", "NaN", "1", "0", "0"))
	s = s.CompleteFetch(id, bad, nil)
	assert.True(t, errors.Is(s.Err, domain.ErrInput))
	assert.Equal(t, 2, s.Dataset.Len())
	assertAggregatesTrackDataset(t, s)
}

func TestState_ExportUsesDatasetAtSignalTime(t *testing.T) {
	s := loaded(t, exampleRaw()).RequestExport("s1")
	require.Equal(t, export.PhaseAwaitingCompletion, s.Gate.Phase())

	s, id := s.BeginFetch()
	s = s.CompleteFetch(id, manyRaw(3), nil)

	s, artifact := s.CompleteExport("s1")
	require.NotNil(t, artifact)
	assert.Equal(t, 3, artifact.Rows)
	assert.Equal(t, export.PhaseIdle, s.Gate.Phase())

	_, again := s.CompleteExport("s1")
	assert.Nil(t, again)
}

func TestState_CancelExport(t *testing.T) {
	s := loaded(t, exampleRaw()).RequestExport("s1").CancelExport()
	assert.Equal(t, export.PhaseIdle, s.Gate.Phase())

	_, artifact := s.CompleteExport("s1")
	assert.Nil(t, artifact)
}

func TestState_View(t *testing.T) {
	s := loaded(t, exampleRaw())
	v := s.View()

	assert.Equal(t, address, v.Address)
	assert.Equal(t, "0x4838b106...0bad5f97", v.ShortAddress)
	assert.True(t, strings.EqualFold(address, v.DisplayAddress))
	assert.Equal(t, "11.000000 ETH", v.LatestBalance)
	assert.Equal(t, "10.000000 ETH", v.PriorBalance)
	assert.Equal(t, "1.000000 ETH", v.TotalReward)
	assert.Empty(t, v.Error)
	assert.Equal(t, "idle", v.Export.Phase)

	require.Len(t, v.Rows, 2)
	assert.Equal(t, "2024-01-02 00:00:00 UTC", v.Rows[0].BlockTime)
	assert.Equal(t, "0.500000 ETH", v.Rows[0].Reward)
	assert.Equal(t, "https://etherscan.io/tx/0xjan2", v.Rows[0].TxURL)

	require.NotNil(t, v.Pagination)
	assert.Equal(t, 1, v.Pagination.From)
	assert.Equal(t, 2, v.Pagination.To)
	assert.Equal(t, 2, v.Pagination.Total)
	assert.Equal(t, []int{1}, v.Pagination.Window)
}

func TestState_ViewOnError(t *testing.T) {
	s, id := New(address, 10).BeginFetch()
	s = s.CompleteFetch(id, nil, errors.New("Failed to fetch data"))

	v := s.View()
	assert.Equal(t, "Failed to fetch data", v.Error)
	assert.Empty(t, v.Rows)
	assert.Nil(t, v.Pagination)
	assert.Empty(t, v.LatestBalance)
}

func TestState_ViewEmptyDataset(t *testing.T) {
	v := loaded(t, nil).View()

	assert.Equal(t, "0.000000 ETH", v.LatestBalance)
	assert.Equal(t, "0.000000 ETH", v.PriorBalance)
	assert.Empty(t, v.Rows)
	require.NotNil(t, v.Pagination)
	assert.Equal(t, 0, v.Pagination.From)
	assert.Equal(t, 1, v.Pagination.PageCount)
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$12.50", FormatUSD(decimal.RequireFromString("12.5")))
	assert.Equal(t, "$1,050.00", FormatUSD(decimal.RequireFromString("1050")))
	assert.Equal(t, "-$3.46", FormatUSD(decimal.RequireFromString("-3.456")))
	assert.Equal(t, "$0.00", FormatUSD(decimal.RequireFromString("-0.001")))
	assert.Equal(t, "$999.99", FormatUSD(decimal.RequireFromString("999.99")))
	assert.Equal(t, "$100,000.00", FormatUSD(decimal.RequireFromString("100000")))
	assert.Equal(t, "-$1,234,567.89", FormatUSD(decimal.RequireFromString("-1234567.891")))
	// beyond float64 precision every digit survives
	assert.Equal(t, "$123,456,789,012,345,678.91", FormatUSD(decimal.RequireFromString("123456789012345678.91")))
}
