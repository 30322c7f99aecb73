package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/client-hunter/internal/classifier"
	"github.com/xaenox/client-hunter/internal/models"
	"github.com/xaenox/client-hunter/internal/notifier"
	"github.com/xaenox/client-hunter/internal/storage"
)

type templatesErrStore struct {
	storage.Storage
	err error
}

func (s *templatesErrStore) GetActiveTemplates(ctx context.Context, userID int64) ([]*models.Template, error) {
	return nil, s.err
}

func newTestScheduler(t *testing.T, store storage.Storage, cfg SchedulerConfig) *Scheduler {
	logger := zaptest.NewLogger(t)
	scanner := NewScanner(
		&fakeProvider{},
		classifier.NewGate(&countingClassifier{}, classifier.ModeConfidence, time.Second, logger),
		NewRecorder(store, logger),
		notifier.NewDispatcher(&recordingNotifier{}, logger),
		store,
		100,
		logger,
	)
	scanner.now = func() time.Time { return scanBase }
	sched := NewScheduler(store, scanner, cfg, logger)
	sched.now = func() time.Time { return scanBase }
	return sched
}

func TestShouldScan(t *testing.T) {
	fourMinAgo := scanBase.Add(-4 * time.Minute)
	fiveMinAgo := scanBase.Add(-5 * time.Minute)
	tenMinAgo := scanBase.Add(-10 * time.Minute)

	tests := []struct {
		name      string
		lastCheck *time.Time
		interval  time.Duration
		expected  bool
	}{
		{name: "never checked is always due", lastCheck: nil, interval: 5 * time.Minute, expected: true},
		{name: "under the interval", lastCheck: &fourMinAgo, interval: 5 * time.Minute, expected: false},
		{name: "exactly at the interval", lastCheck: &fiveMinAgo, interval: 5 * time.Minute, expected: true},
		{name: "well past the interval", lastCheck: &tenMinAgo, interval: 5 * time.Minute, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldScan(tt.lastCheck, tt.interval, scanBase))
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	sched := newTestScheduler(t, storage.NewMemoryStorage(), SchedulerConfig{
		TickInterval: 10 * time.Millisecond,
		StopTimeout:  time.Second,
	})

	assert.False(t, sched.Running())

	sched.Start()
	assert.True(t, sched.Running())

	// Second Start is a no-op.
	sched.Start()
	assert.True(t, sched.Running())

	sched.Stop()
	assert.False(t, sched.Running())

	// Stop on a stopped scheduler is a no-op.
	sched.Stop()
	assert.False(t, sched.Running())
}

func TestScheduler_TickScansEligibleUser(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.CreateTemplate(ctx, testTemplate()))
	require.NoError(t, store.SaveSettings(ctx, testSettings()))

	sched := newTestScheduler(t, store, SchedulerConfig{})
	require.NoError(t, sched.runTick(ctx))

	settings, err := store.GetSettings(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, settings.LastCheck)
	assert.True(t, settings.LastCheck.Equal(scanBase))
}

func TestScheduler_TickSkipsInactiveUser(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.CreateTemplate(ctx, testTemplate()))

	inactive := testSettings()
	inactive.IsActive = false
	require.NoError(t, store.SaveSettings(ctx, inactive))

	sched := newTestScheduler(t, store, SchedulerConfig{})
	require.NoError(t, sched.runTick(ctx))

	settings, err := store.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, settings.LastCheck)
}

func TestScheduler_TickSkipsUserCheckedRecently(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.CreateTemplate(ctx, testTemplate()))

	recent := testSettings()
	recent.CheckIntervalMinutes = 5
	require.NoError(t, store.SaveSettings(ctx, recent))
	justChecked := scanBase.Add(-time.Minute)
	require.NoError(t, store.UpdateLastCheck(ctx, 1, justChecked))

	sched := newTestScheduler(t, store, SchedulerConfig{})
	require.NoError(t, sched.runTick(ctx))

	settings, err := store.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.True(t, settings.LastCheck.Equal(justChecked), "last check must not advance for a recently checked user")
}

func TestScheduler_LastCheckAdvancesAfterFailedScan(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.CreateTemplate(ctx, testTemplate()))
	require.NoError(t, mem.SaveSettings(ctx, testSettings()))

	// A template load failure inside the scan must not starve future ticks.
	store := &templatesErrStore{Storage: mem, err: errors.New("db down")}
	sched := newTestScheduler(t, store, SchedulerConfig{})
	require.NoError(t, sched.runTick(ctx))

	settings, err := mem.GetSettings(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, settings.LastCheck)
	assert.True(t, settings.LastCheck.Equal(scanBase))
}

func TestScheduler_TickWithoutSettingsIsQuiet(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.CreateTemplate(ctx, testTemplate()))

	sched := newTestScheduler(t, store, SchedulerConfig{})
	assert.NoError(t, sched.runTick(ctx))
}
