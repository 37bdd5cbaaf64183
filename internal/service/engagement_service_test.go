package service

import (
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

func TestRecordAction_NewUserStartsAtBaseline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1)

	score, err := env.engagement.RecordAction(ctx, 1, ActionLogin)
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	row := env.score(t, 1)
	assert.Equal(t, 100, row.Score)
	assert.True(t, row.LastLogin.Equal(baseTime))

	history := env.history(t, 1)
	require.Len(t, history, 1)
	assert.Equal(t, string(ActionLogin), history[0].ActionType)
	assert.Equal(t, 100, history[0].ScoreAfter)

	assert.Empty(t, env.stages(t, 1))
	assert.Empty(t, env.notifier.Stages())
}

func TestRecordAction_HistoryMatchesScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1)
	env.seedScore(t, 1, 80, baseTime)

	actions := []ActionKind{ActionMessageIgnored, ActionProfileIncomplete, ActionMessageSent, ActionPositiveReview}
	for _, kind := range actions {
		_, err := env.engagement.RecordAction(ctx, 1, kind)
		require.NoError(t, err)
	}

	history := env.history(t, 1)
	require.Len(t, history, len(actions))
	expected := 80
	for i, h := range history {
		expected = ClampScore(expected + h.ScoreChange)
		assert.Equal(t, expected, h.ScoreAfter, "entry %d", i)
		assert.Equal(t, string(actions[i]), h.ActionType)
	}
	assert.Equal(t, expected, env.score(t, 1).Score)
	assert.Equal(t, 84, expected)
}

func TestRecordAction_ServicePostSetsLastContentPost(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1)

	_, err := env.engagement.RecordAction(context.Background(), 1, ActionServicePost)
	require.NoError(t, err)

	row := env.score(t, 1)
	require.NotNil(t, row.LastContentPost)
	assert.True(t, row.LastContentPost.Equal(baseTime))
}

func TestRecordAction_RejectsUnknownAndSynthetic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engagement.RecordAction(ctx, 1, ActionKind("FOLLOWED"))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = env.engagement.RecordAction(ctx, 1, ActionDaysInactive)
	assert.ErrorIs(t, err, ErrActionNotAllowed)

	_, err = env.engagement.RecordAction(ctx, 1, ActionReactivated)
	assert.ErrorIs(t, err, ErrUnknownAction)

	assert.Zero(t, env.count(t, &model.EngagementScore{}, 1))
	assert.Zero(t, env.count(t, &model.EngagementHistory{}, 1))
}

func TestRecordAction_OutOfRangeRowIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1)
	env.seedScore(t, 1, 140, baseTime)

	_, err := env.engagement.RecordAction(context.Background(), 1, ActionLogin)
	assert.ErrorIs(t, err, ErrScoreOutOfRange)
	assert.Empty(t, env.history(t, 1))
}

type flakyTransactor struct {
	inner    repository.Transactor
	failures int
	calls    int
}

func (f *flakyTransactor) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("Error 1213: Deadlock found when trying to get lock")
	}
	return f.inner.WithTransaction(ctx, fn)
}

func TestRecordAction_RetriesOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1)
	flaky := &flakyTransactor{inner: repository.NewTransactor(env.db), failures: 1}
	env.engagement.tx = flaky

	score, err := env.engagement.RecordAction(context.Background(), 1, ActionMessageSent)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
	assert.Equal(t, 2, flaky.calls)
	assert.Len(t, env.history(t, 1), 1)
}

func TestRecordAction_FailsAfterRetry(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, 1)
	flaky := &flakyTransactor{inner: repository.NewTransactor(env.db), failures: 5}
	env.engagement.tx = flaky

	_, err := env.engagement.RecordAction(context.Background(), 1, ActionLogin)
	assert.ErrorIs(t, err, ErrScoreUpdateFailed)
	assert.Equal(t, 2, flaky.calls)
	assert.Empty(t, env.history(t, 1))
	assert.Empty(t, env.notifier.Stages())
}

func TestApplyDecay_ChargesPendingDaysOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1)
	env.seedScore(t, 1, 60, baseTime.Add(-10*day))

	res, err := env.engagement.ApplyDecay(ctx, 1, baseTime)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, 10, res.ChargedDays)

	history := env.history(t, 1)
	require.Len(t, history, 1)
	assert.Equal(t, string(ActionDaysInactive), history[0].ActionType)
	assert.Equal(t, -10, history[0].ScoreChange)
	assert.Equal(t, 50, history[0].ScoreAfter)

	// 同一天重复执行不再扣分
	res, err = env.engagement.ApplyDecay(ctx, 1, baseTime.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 50, res.Score)
	assert.Zero(t, res.ChargedDays)
	assert.Len(t, env.history(t, 1), 1)

	res, err = env.engagement.ApplyDecay(ctx, 1, baseTime.Add(day))
	require.NoError(t, err)
	assert.Equal(t, 49, res.Score)
	assert.Equal(t, 1, res.ChargedDays)
	assert.Equal(t, 11, env.score(t, 1).DecayDaysCharged)
}

func TestApplyDecay_LoginResetsCharge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1)
	env.seedScore(t, 1, 90, baseTime.Add(-3*day))

	_, err := env.engagement.ApplyDecay(ctx, 1, baseTime)
	require.NoError(t, err)
	assert.Equal(t, 87, env.score(t, 1).Score)

	_, err = env.engagement.RecordAction(ctx, 1, ActionLogin)
	require.NoError(t, err)
	row := env.score(t, 1)
	assert.Equal(t, 92, row.Score)
	assert.Zero(t, row.DecayDaysCharged)

	res, err := env.engagement.ApplyDecay(ctx, 1, baseTime.Add(2*day))
	require.NoError(t, err)
	assert.Equal(t, 90, res.Score)
	assert.Equal(t, 2, res.ChargedDays)
}

func TestApplyDecay_FloorsAtZeroAndDeactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1)
	env.seedScore(t, 1, 5, baseTime.Add(-30*day))

	res, err := env.engagement.ApplyDecay(ctx, 1, baseTime)
	require.NoError(t, err)
	assert.Zero(t, res.Score)

	stages := env.stages(t, 1)
	require.Len(t, stages, 1)
	assert.Equal(t, string(StageDeactivated), stages[0].Stage)
	assert.Equal(t, consts.UserStatusDeactivated, env.accountStatus(t, 1))

	_, err = env.engagement.ApplyDecay(ctx, 1, baseTime.Add(day))
	assert.ErrorIs(t, err, ErrUserDeactivated)
}

func TestGetSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1)

	snapshot, err := env.engagement.GetSnapshot(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, snapshot.Score)
	assert.Equal(t, string(StageEngaged), snapshot.Stage)
	assert.Empty(t, snapshot.History)
	assert.Equal(t, 1, snapshot.Page)
	assert.Equal(t, defaultPageSize, snapshot.PageSize)
	assert.Zero(t, env.count(t, &model.EngagementScore{}, 1))

	for i := 0; i < 3; i++ {
		env.clock.Set(baseTime.Add(time.Duration(i) * time.Minute))
		_, err = env.engagement.RecordAction(ctx, 1, ActionMessageIgnored)
		require.NoError(t, err)
	}

	snapshot, err = env.engagement.GetSnapshot(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 94, snapshot.Score)
	assert.EqualValues(t, 3, snapshot.Total)
	require.Len(t, snapshot.History, 2)
	assert.Equal(t, 96, snapshot.History[0].ScoreAfter)
	assert.Equal(t, 94, snapshot.History[1].ScoreAfter)
}

func TestGetSnapshot_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engagement.GetSnapshot(context.Background(), 42, 1, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Zero(t, env.count(t, &model.EngagementScore{}, 42))
}

func TestReactivate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1)
	env.seedScore(t, 1, 2, baseTime.Add(-day))

	score, err := env.engagement.RecordAction(ctx, 1, ActionMessageIgnored)
	require.NoError(t, err)
	assert.Zero(t, score)
	assert.Equal(t, consts.UserStatusDeactivated, env.accountStatus(t, 1))

	_, err = env.engagement.RecordAction(ctx, 1, ActionLogin)
	assert.ErrorIs(t, err, ErrUserDeactivated)

	env.clock.Set(baseTime.Add(2 * day))
	require.NoError(t, env.engagement.Reactivate(ctx, 1))

	row := env.score(t, 1)
	assert.Equal(t, 100, row.Score)
	assert.True(t, row.LastLogin.Equal(baseTime.Add(2*day)))
	assert.Equal(t, consts.UserStatusActive, env.accountStatus(t, 1))
	for _, r := range env.stages(t, 1) {
		assert.True(t, r.Cleared)
	}

	history := env.history(t, 1)
	last := history[len(history)-1]
	assert.Equal(t, string(ActionReactivated), last.ActionType)
	assert.Equal(t, 100, last.ScoreChange)
	assert.Equal(t, 100, last.ScoreAfter)

	score, err = env.engagement.RecordAction(ctx, 1, ActionLogin)
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	// 再次激活是幂等的
	require.NoError(t, env.engagement.Reactivate(ctx, 1))
	assert.Equal(t, consts.UserStatusActive, env.accountStatus(t, 1))
}

func TestReactivate_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	err := env.engagement.Reactivate(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetProfileCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1, "design")
	env.seedScore(t, 1, 90, baseTime)

	res, err := env.engagement.GetProfileCompletion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 60, res.Percentage)
	assert.ElementsMatch(t, []string{"avatar_url", "bio"}, res.Missing)
	assert.Equal(t, 60, env.score(t, 1).ProfileCompletion)

	_, err = env.engagement.GetProfileCompletion(ctx, 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
