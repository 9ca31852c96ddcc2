package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxscan/verify-cli/internal/config"
	"github.com/rxscan/verify-cli/internal/model"
	"github.com/rxscan/verify-cli/internal/store"
)

// fakeStore serves a fixed run list; the other Store methods are unused
// by the monitoring collector.
type fakeStore struct {
	store.Store
	runs []model.Run
	err  error
}

func (f *fakeStore) ListRuns(context.Context, store.RunFilter) ([]model.Run, error) {
	return f.runs, f.err
}

type fakeBreakers map[string]string

func (f fakeBreakers) States() map[string]string { return f }

func run(status model.RunStatus, age time.Duration, quality float64, tier model.VerificationTier) model.Run {
	r := model.Run{
		Status:    status,
		CreatedAt: time.Now().UTC().Add(-age),
	}
	if status == model.RunStatusCompleted {
		r.Profile = &model.VerifiedProfile{
			Quality: model.QualityMetrics{OverallQuality: quality, Tier: tier},
		}
	}
	return r
}

func TestCollectSummarizesWindow(t *testing.T) {
	st := &fakeStore{runs: []model.Run{
		run(model.RunStatusCompleted, time.Hour, 92, model.TierGold),
		run(model.RunStatusCompleted, 2*time.Hour, 72, model.TierBronze),
		run(model.RunStatusFailed, 3*time.Hour, 0, ""),
		run(model.RunStatusQueued, time.Minute, 0, ""),
		run(model.RunStatusCompleted, 30*time.Hour, 95, model.TierGold), // outside window
	}}

	snap, err := NewCollector(st, fakeBreakers{"rxnorm": "open"}).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsCompleted)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsQueued)
	assert.InDelta(t, 1.0/3.0, snap.FailureRate, 0.0001)
	assert.InDelta(t, 82.0, snap.AvgQuality, 0.0001)
	assert.Equal(t, 1, snap.TierCounts["gold"])
	assert.Equal(t, 1, snap.TierCounts["bronze"])
	assert.Equal(t, "open", snap.Breakers["rxnorm"])
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestCollectStoreError(t *testing.T) {
	st := &fakeStore{err: assert.AnError}
	_, err := NewCollector(st, nil).Collect(context.Background(), 24)
	assert.Error(t, err)
}

func TestCollectDefaultsLookback(t *testing.T) {
	snap, err := NewCollector(&fakeStore{}, nil).Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Zero(t, snap.FailureRate)
}

func TestEvaluateFailureRateThreshold(t *testing.T) {
	cfg := config.MonitoringConfig{FailureRateThreshold: 0.5, MinRunsForAlert: 10}
	a := NewAlerter(cfg)

	quiet := a.Evaluate(&Snapshot{RunsCompleted: 8, RunsFailed: 1})
	assert.Empty(t, quiet, "below the minimum sample size")

	breach := a.Evaluate(&Snapshot{RunsCompleted: 3, RunsFailed: 7, FailureRate: 0.7})
	require.Len(t, breach, 1)
	assert.Equal(t, AlertRunFailureRate, breach[0].Type)
	assert.Equal(t, "high", breach[0].Severity)
}

func TestEvaluateOpenBreakers(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	alerts := a.Evaluate(&Snapshot{Breakers: map[string]string{
		"rxnorm":   "open",
		"dailymed": "closed",
		"webref":   "half-open",
	}})

	require.Len(t, alerts, 1)
	assert.Equal(t, AlertProviderOpen, alerts[0].Type)
	assert.Equal(t, "rxnorm", alerts[0].Details["provider"])
}

func TestSendAlertsPostsJSON(t *testing.T) {
	var received []Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var a Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		received = append(received, a)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailureRate, Severity: "high", Message: "too many failures"},
		{Type: AlertProviderOpen, Severity: "medium", Message: "rxnorm open"},
	})

	assert.Equal(t, 2, sent)
	require.Len(t, received, 2)
	assert.Equal(t, AlertRunFailureRate, received[0].Type)
}

func TestSendAlertsCountsOnlyDeliveries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rejected", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailureRate}})
	assert.Zero(t, sent)
}

func TestSendAlertsWithoutWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Zero(t, a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailureRate}}))
}
