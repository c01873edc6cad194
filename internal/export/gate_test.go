package export

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/stakeview/internal/domain"
)

const address = "0x4838b106fce9647bdf1e7877bf73ce8b0bad5f97"

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func records(hashes ...string) []domain.Record {
	out := make([]domain.Record, len(hashes))
	for i, h := range hashes {
		out[i] = domain.Record{
			Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			PostBalance: decimal.NewFromInt(1),
			PreBalance:  decimal.NewFromInt(1),
			TxHash:      h,
		}
	}
	return out
}

func TestGate_RequestThenComplete(t *testing.T) {
	g := Gate{}.WithClock(func() time.Time { return fixedNow })
	require.Equal(t, PhaseIdle, g.Phase())

	g = g.Request("s1")
	require.True(t, g.Awaiting())
	require.Equal(t, "s1", g.SessionID())

	g, artifact := g.Complete("s1", address, records("0x1", "0x2"))
	require.NotNil(t, artifact)
	assert.Equal(t, PhaseIdle, g.Phase())
	assert.Empty(t, g.SessionID())

	assert.Equal(t, "s1", artifact.SessionID)
	assert.Equal(t, address, artifact.Address)
	assert.Equal(t, "validator-0x4838b106-rewards.csv", artifact.Filename)
	assert.Equal(t, 2, artifact.Rows)
	assert.Equal(t, fixedNow, artifact.CreatedAt)
	assert.Len(t, strings.Split(artifact.Content, "\n"), 3)
}

func TestGate_SecondSignalProducesNothing(t *testing.T) {
	g := Gate{}.Request("s1")

	g, first := g.Complete("s1", address, records("0x1"))
	require.NotNil(t, first)

	g, second := g.Complete("s1", address, records("0x1"))
	assert.Nil(t, second)
	assert.Equal(t, PhaseIdle, g.Phase())
}

func TestGate_CancelProducesNothing(t *testing.T) {
	g := Gate{}.Request("s1").Cancel()
	assert.Equal(t, PhaseIdle, g.Phase())

	g, artifact := g.Complete("s1", address, records("0x1"))
	assert.Nil(t, artifact)
	assert.Equal(t, PhaseIdle, g.Phase())
}

func TestGate_SignalWhileIdleIsIgnored(t *testing.T) {
	idle := Gate{}
	g, artifact := idle.Complete("", address, records("0x1"))
	assert.Nil(t, artifact)
	assert.Equal(t, idle, g)

	assert.Equal(t, idle, idle.Cancel())
}

func TestGate_RequestIsReentrant(t *testing.T) {
	g := Gate{}.Request("s1").Request("s2")
	assert.Equal(t, "s1", g.SessionID())

	g, artifact := g.Complete("s2", address, records("0x1"))
	assert.Nil(t, artifact)
	assert.True(t, g.Awaiting())

	_, artifact = g.Complete("s1", address, records("0x1"))
	assert.NotNil(t, artifact)
}

func TestGate_EmptySessionIDDoesNotOpen(t *testing.T) {
	assert.Equal(t, PhaseIdle, Gate{}.Request("").Phase())
}

func TestGate_TransitionsDoNotMutateReceiver(t *testing.T) {
	idle := Gate{}
	_ = idle.Request("s1")
	assert.Equal(t, PhaseIdle, idle.Phase())

	awaiting := idle.Request("s1")
	_, _ = awaiting.Complete("s1", address, nil)
	assert.True(t, awaiting.Awaiting())
}

func TestGate_EmptyDatasetExportsHeaderOnly(t *testing.T) {
	_, artifact := Gate{}.Request("s1").Complete("s1", address, nil)
	require.NotNil(t, artifact)
	assert.Equal(t, 0, artifact.Rows)
	assert.NotContains(t, artifact.Content, "\n")
}

func TestHubSpotForm_Prompt(t *testing.T) {
	var form LeadForm = HubSpotForm{PortalID: "6314272", FormID: "form-1"}

	p := form.Prompt("s1")
	assert.Equal(t, FormPrompt{Provider: "hubspot", PortalID: "6314272", FormID: "form-1", SessionID: "s1"}, p)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "awaiting_completion", PhaseAwaitingCompletion.String())
}
