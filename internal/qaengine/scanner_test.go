package qaengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketqa/internal/metrics"
	"marketqa/internal/model"
	"marketqa/internal/notification"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notification.Alert
	err    error // returned, without recording, while set
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(ctx context.Context, a notification.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.alerts = append(r.alerts, a)
	return nil
}

func TestScanner_RunOnceAlertsOnce(t *testing.T) {
	m := metrics.NewMetrics()
	svc := New(seedCross(t), Options{Metrics: m})
	rec := &recordingNotifier{}
	sc := NewScanner(svc, []string{"XCRS", "FLAT", "ZZZZ"}, rec, m)

	sigs, err := sc.RunOnce(context.Background())
	assert.EqualError(t, err, "1 of 3 tickers failed")
	require.NotEmpty(t, sigs)
	require.Len(t, rec.alerts, len(sigs))

	var cross *notification.Alert
	for i, a := range rec.alerts {
		if a.Signal != nil && a.Signal.Kind == model.SignalGoldenCross {
			cross = &rec.alerts[i]
		}
	}
	require.NotNil(t, cross, "golden cross alerted")
	assert.Equal(t, "XCRS: Golden Cross", cross.Title)
	assert.Equal(t, notification.AlertWarning, cross.Level)

	again, err := sc.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, again, "signals already alerted are not sent twice")
	assert.Len(t, rec.alerts, len(sigs))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScanRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScanFailures.WithLabelValues("ZZZZ")))
}

func TestScanner_StartRejectsBadSchedule(t *testing.T) {
	sc := NewScanner(New(seedCross(t), Options{}), nil, &recordingNotifier{}, nil)
	assert.Error(t, sc.Start(context.Background(), "every day"))

	require.NoError(t, sc.Start(context.Background(), "0 30 18 * * 1-5"))
	sc.Stop()
}

func TestScanner_CanceledContext(t *testing.T) {
	sc := NewScanner(New(seedCross(t), Options{}), []string{"XCRS"}, &recordingNotifier{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sigs, err := sc.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sigs)
}

func TestScanner_ScheduledSkipsHolidays(t *testing.T) {
	m := metrics.NewMetrics()
	rec := &recordingNotifier{}
	sc := NewScanner(New(seedCross(t), Options{}), []string{"XCRS"}, rec, m)

	sc.now = func() time.Time { return time.Date(2024, 7, 4, 18, 30, 0, 0, time.UTC) }
	assert.False(t, sc.scheduled(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ScanRuns))

	sc.now = func() time.Time { return time.Date(2024, 7, 5, 18, 30, 0, 0, time.UTC) }
	assert.True(t, sc.scheduled(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanRuns))
	assert.NotEmpty(t, rec.alerts)
}

func TestScanner_RetriesFailedDelivery(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("webhook: 502")}
	sc := NewScanner(New(seedCross(t), Options{}), []string{"XCRS"}, rec, nil)

	sigs, err := sc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sigs, "undelivered signals are not reported as alerted")

	rec.err = nil
	sigs, err = sc.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sigs, "the next run retries delivery")
	assert.Len(t, rec.alerts, len(sigs))

	again, err := sc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestScanner_FlagsStaleData(t *testing.T) {
	m := metrics.NewMetrics()
	sc := NewScanner(New(seedCross(t), Options{}), []string{"FLAT"}, &recordingNotifier{}, m)
	stale := m.ScanStale.WithLabelValues("FLAT")

	// FLAT ends on 2024-01-01, a holiday; the last session before it is 2023-12-29.
	sc.now = func() time.Time { return time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC) }
	_, err := sc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(stale))

	sc.now = func() time.Time { return time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC) }
	_, err = sc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(stale))
}
