package panel

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lcking/throttle/internal/behavior"
)

func newStore(t *testing.T) *behavior.Store {
	t.Helper()
	store, err := behavior.NewStore(filepath.Join(t.TempDir(), "behavior.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewServer(newStore(t), 30).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPanelRenders(t *testing.T) {
	store := newStore(t)
	now := time.Now()
	for _, et := range []behavior.EventType{behavior.EventHit, behavior.EventSwitchLight} {
		require.NoError(t, store.Record(context.Background(), behavior.Event{
			Timestamp: now, Type: et, RuleID: "R001_PLAN_EXEC_REASONING",
		}))
	}

	srv := httptest.NewServer(NewServer(store, 30).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	html := string(body)
	assert.Contains(t, html, "Reroute rate (7d)")
	assert.Contains(t, html, "Nudges shown")
	assert.Contains(t, html, "target 30%")
	assert.Contains(t, html, "No notable risk signals.")
}

func TestRiskNotes(t *testing.T) {
	frequent := behavior.Stats{Last7Days: behavior.Counts{behavior.EventHit: 12}}
	risks := riskNotes(frequent, 30)
	require.Len(t, risks, 1)
	assert.Contains(t, risks[0], "below target")

	passive := behavior.Stats{Last7Days: behavior.Counts{
		behavior.EventHit:       12,
		behavior.EventContinue:  9,
		behavior.EventSwitchAsk: 6,
	}}
	passive.Last7DaysRerouteRate = 0.5
	risks = riskNotes(passive, 30)
	require.Len(t, risks, 1)
	assert.Contains(t, risks[0], "continuing as-is")

	clean := behavior.Stats{}
	assert.Equal(t, []string{"No notable risk signals."}, riskNotes(clean, 30))
}

func TestBuildViewPercentRounding(t *testing.T) {
	stats := behavior.Stats{Last7DaysRerouteRate: 0.336}
	view := buildView(stats, 30)
	assert.Equal(t, 34, view.Rates[0].Percent)
	assert.Len(t, view.Counts, len(behavior.EventTypes))
}
