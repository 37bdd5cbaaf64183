package job

import (
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/service"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runAt = time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

type memLocker struct {
	mu       sync.Mutex
	held     map[string]string
	unlocked []string
	err      error
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (m *memLocker) TryLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.held[key]; ok {
		return false, nil
	}
	m.held[key] = value
	return true, nil
}

func (m *memLocker) Unlock(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == value {
		delete(m.held, key)
		m.unlocked = append(m.unlocked, key)
	}
}

type fakeScoreRepo struct {
	ids []uint64
}

func (f *fakeScoreRepo) ListActiveUserIDs(_ context.Context, afterID uint64, limit int) ([]uint64, error) {
	res := make([]uint64, 0, limit)
	for _, id := range f.ids {
		if id > afterID && len(res) < limit {
			res = append(res, id)
		}
	}
	return res, nil
}

func (f *fakeScoreRepo) LockOrCreate(context.Context, uint64, time.Time) (*model.EngagementScore, error) {
	return nil, errors.New("not used")
}

func (f *fakeScoreRepo) LockByUserID(context.Context, uint64) (*model.EngagementScore, error) {
	return nil, errors.New("not used")
}

func (f *fakeScoreRepo) GetByUserID(context.Context, uint64) (*model.EngagementScore, error) {
	return nil, errors.New("not used")
}

func (f *fakeScoreRepo) Update(context.Context, *model.EngagementScore) error {
	return errors.New("not used")
}

func (f *fakeScoreRepo) UpdateProfileCompletion(context.Context, uint64, int) error {
	return errors.New("not used")
}

type fakeEngagement struct {
	mu      sync.Mutex
	results map[uint64]*service.DecayResult
	errs    map[uint64]error
	seen    []uint64
	at      []time.Time
}

func (f *fakeEngagement) ApplyDecay(_ context.Context, userID uint64, now time.Time) (*service.DecayResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, userID)
	f.at = append(f.at, now)
	if err, ok := f.errs[userID]; ok {
		return nil, err
	}
	if res, ok := f.results[userID]; ok {
		return res, nil
	}
	return &service.DecayResult{Score: 100}, nil
}

func (f *fakeEngagement) RecordAction(context.Context, uint64, service.ActionKind) (int, error) {
	return 0, errors.New("not used")
}

func (f *fakeEngagement) GetSnapshot(context.Context, uint64, int, int) (*dto.EngagementSnapshotDTO, error) {
	return nil, errors.New("not used")
}

func (f *fakeEngagement) Reactivate(context.Context, uint64) error {
	return errors.New("not used")
}

func (f *fakeEngagement) GetProfileCompletion(context.Context, uint64) (*dto.ProfileCompletionDTO, error) {
	return nil, errors.New("not used")
}

func TestDecayJob_AppliesToEveryPage(t *testing.T) {
	engagement := &fakeEngagement{
		results: map[uint64]*service.DecayResult{
			1: {Score: 90, ChargedDays: 10},
			4: {Score: 80, ChargedDays: 1},
		},
		errs: map[uint64]error{
			3: service.ErrUserDeactivated,
			5: errors.New("db gone"),
		},
	}
	locker := newMemLocker()
	job := NewDecayJob(engagement, &fakeScoreRepo{ids: []uint64{1, 2, 3, 4, 5}}, locker, 3)
	job.pageSize = 2

	report, err := job.RunAt(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, &DecayReport{Charged: 2, Unchanged: 1, Skipped: 1, Failed: 1}, report)

	sort.Slice(engagement.seen, func(i, j int) bool { return engagement.seen[i] < engagement.seen[j] })
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, engagement.seen)
	for _, at := range engagement.at {
		assert.True(t, at.Equal(runAt))
	}
	assert.Equal(t, []string{consts.EngagementDecayLock}, locker.unlocked)
	assert.Empty(t, locker.held)
}

func TestDecayJob_SkipsWhenLockHeld(t *testing.T) {
	engagement := &fakeEngagement{}
	locker := newMemLocker()
	locker.held[consts.EngagementDecayLock] = "other-instance"
	job := NewDecayJob(engagement, &fakeScoreRepo{ids: []uint64{1}}, locker, 0)

	report, err := job.RunAt(context.Background(), runAt)
	require.NoError(t, err)
	assert.Equal(t, &DecayReport{}, report)
	assert.Empty(t, engagement.seen)
	assert.Equal(t, "other-instance", locker.held[consts.EngagementDecayLock])
}

func TestDecayJob_LockError(t *testing.T) {
	locker := newMemLocker()
	locker.err = errors.New("redis down")
	job := NewDecayJob(&fakeEngagement{}, &fakeScoreRepo{}, locker, 1)

	_, err := job.RunAt(context.Background(), runAt)
	assert.EqualError(t, err, "redis down")
}

type fakeFunnel struct {
	service.FunnelService
	restoredAt []time.Time
	reconciled int
	restoreErr error
}

func (f *fakeFunnel) RestoreTimers(_ context.Context, now time.Time) error {
	f.restoredAt = append(f.restoredAt, now)
	return f.restoreErr
}

func (f *fakeFunnel) Reconcile(context.Context) error {
	f.reconciled++
	return nil
}

func TestSweepJob(t *testing.T) {
	funnel := &fakeFunnel{}
	locker := newMemLocker()
	job := NewDeactivationSweepJob(funnel, locker)

	require.NoError(t, job.RunAt(context.Background(), runAt))
	require.Len(t, funnel.restoredAt, 1)
	assert.True(t, funnel.restoredAt[0].Equal(runAt))
	assert.Equal(t, 1, funnel.reconciled)
	assert.Empty(t, locker.held)

	locker.held[consts.EngagementSweepLock] = "other-instance"
	require.NoError(t, job.RunAt(context.Background(), runAt))
	assert.Len(t, funnel.restoredAt, 1)
}

func TestSweepJob_RestoreFailureStopsReconcile(t *testing.T) {
	funnel := &fakeFunnel{restoreErr: errors.New("boom")}
	job := NewDeactivationSweepJob(funnel, newMemLocker())

	assert.EqualError(t, job.RunAt(context.Background(), runAt), "boom")
	assert.Zero(t, funnel.reconciled)
}
