package consultation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/models"
)

type fakeAuditStorage struct {
	mu      sync.Mutex
	cutoffs []int64
}

func (f *fakeAuditStorage) Save(context.Context, *models.GatewayAudit) error { return nil }
func (f *fakeAuditStorage) List(context.Context, int) ([]models.GatewayAudit, error) {
	return nil, nil
}
func (f *fakeAuditStorage) ListBySession(context.Context, string) ([]models.GatewayAudit, error) {
	return nil, nil
}
func (f *fakeAuditStorage) DeleteOlderThan(_ context.Context, cutoffUnix int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoffUnix)
	return 0, nil
}

func TestSweeper_RunNowPurgesIdleSessions(t *testing.T) {
	registry := NewRegistry(&common.SessionsConfig{IdleTimeout: "200ms", MaxSessions: 10}, arbor.NewNoOpLogger())
	registry.Create()
	registry.Create()

	time.Sleep(300 * time.Millisecond)
	fresh := registry.Create()

	sweeper := NewSweeper(registry, arbor.NewNoOpLogger())
	assert.Equal(t, 2, sweeper.RunNow())

	_, err := registry.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestSweeper_AuditRetention(t *testing.T) {
	registry := newTestRegistry(10, 0)
	audit := &fakeAuditStorage{}

	sweeper := NewSweeper(registry, arbor.NewNoOpLogger())
	sweeper.RunNow()
	assert.Empty(t, audit.cutoffs)

	sweeper.SetAuditRetention(audit, 24*time.Hour)
	before := time.Now().Add(-24 * time.Hour).Unix()
	sweeper.RunNow()

	require.Len(t, audit.cutoffs, 1)
	assert.InDelta(t, before, audit.cutoffs[0], 2)
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	sweeper := NewSweeper(newTestRegistry(10, 0), arbor.NewNoOpLogger())
	assert.Error(t, sweeper.Start("not a schedule"))

	require.NoError(t, sweeper.Start(""))
	sweeper.Stop()
}

func TestSweeper_StartedScheduleCanRunNow(t *testing.T) {
	registry := NewRegistry(&common.SessionsConfig{IdleTimeout: "1ms", MaxSessions: 10}, arbor.NewNoOpLogger())
	registry.Create()
	time.Sleep(5 * time.Millisecond)

	sweeper := NewSweeper(registry, arbor.NewNoOpLogger())
	require.NoError(t, sweeper.Start("@every 1h"))
	defer sweeper.Stop()

	assert.Equal(t, 1, sweeper.RunNow())
	assert.Equal(t, 0, registry.Len())
}
