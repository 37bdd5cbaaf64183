package kafka

import (
	"TradeTalent/internal/api/config"
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/service"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	userID uint64
	kind   service.ActionKind
}

type fakeEngagement struct {
	mu    sync.Mutex
	calls []recorded
	err   error
}

func (f *fakeEngagement) RecordAction(_ context.Context, userID uint64, kind service.ActionKind) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recorded{userID: userID, kind: kind})
	if f.err != nil {
		return 0, f.err
	}
	return 100, nil
}

func (f *fakeEngagement) ApplyDecay(context.Context, uint64, time.Time) (*service.DecayResult, error) {
	return nil, errors.New("not used")
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

type fakeMarker struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeMarker() *fakeMarker {
	return &fakeMarker{keys: map[string]string{}}
}

func (f *fakeMarker) TryLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = value
	return true, nil
}

func (f *fakeMarker) Unlock(_ context.Context, key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] == value {
		delete(f.keys, key)
	}
}

func message(topic, value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: topic, Value: []byte(value), Offset: 12}
}

func TestActionHandler_Logic(t *testing.T) {
	svc := &fakeEngagement{}
	h := NewEngagementActionHandler(svc)
	ctx := context.Background()

	cases := []string{
		`not json`,
		`{"user_id":0,"action":"LOGIN"}`,
		`{"user_id":5,"action":"FOLLOWED"}`,
	}
	for _, v := range cases {
		assert.NoError(t, h.logic(ctx, message("engagement-action", v)), v)
	}
	assert.Empty(t, svc.calls)

	require.NoError(t, h.logic(ctx, message("engagement-action", `{"user_id":5,"action":"MESSAGE_SENT"}`)))
	assert.Equal(t, []recorded{{userID: 5, kind: service.ActionMessageSent}}, svc.calls)
}

func TestActionHandler_RejectedActionIsAcked(t *testing.T) {
	svc := &fakeEngagement{err: service.ErrUserDeactivated}
	h := NewEngagementActionHandler(svc)

	assert.NoError(t, h.logic(context.Background(), message("engagement-action", `{"user_id":5,"action":"LOGIN"}`)))
	assert.Len(t, svc.calls, 1)

	svc.err = context.Canceled
	assert.ErrorIs(t, h.logic(context.Background(), message("engagement-action", `{"user_id":5,"action":"LOGIN"}`)), context.Canceled)
}

func TestListingHandler_Logic(t *testing.T) {
	svc := &fakeEngagement{}
	h := NewListingHandler(svc, newFakeMarker())
	ctx := context.Background()

	insert := `{"table":"services","type":"INSERT","data":[{"id":"1","user_id":"7"},{"id":"2","user_id":"8"},{"id":"3"}]}`
	require.NoError(t, h.logic(ctx, message("canal-services", insert)))
	assert.Equal(t, []recorded{
		{userID: 7, kind: service.ActionServicePost},
		{userID: 8, kind: service.ActionServicePost},
	}, svc.calls)

	svc.calls = nil
	ignored := []string{
		`{"table":"services","type":"UPDATE","data":[{"id":"1","user_id":"7"}]}`,
		`{"table":"services","type":"DELETE","data":[{"id":"1","user_id":"7"}]}`,
		`{"table":"users","type":"INSERT","data":[{"id":"1"}]}`,
		`{"table":"services","type":"INSERT","data":[]}`,
		`{"table":"services","type":"INSERT","isDdl":true,"data":[{"id":"1","user_id":"7"}]}`,
		`garbage`,
	}
	for _, v := range ignored {
		assert.NoError(t, h.logic(ctx, message("canal-services", v)), v)
	}
	assert.Empty(t, svc.calls)
}

// cancelOnSecond 第二次调用返回 context.Canceled，模拟多行 INSERT 处理到一半时停机
type cancelOnSecond struct {
	fakeEngagement
	n int
}

func (f *cancelOnSecond) RecordAction(ctx context.Context, userID uint64, kind service.ActionKind) (int, error) {
	f.n++
	if f.n == 2 {
		return 0, context.Canceled
	}
	return f.fakeEngagement.RecordAction(ctx, userID, kind)
}

func TestListingHandler_RedeliveryScoresOnce(t *testing.T) {
	svc := &cancelOnSecond{}
	marker := newFakeMarker()
	h := NewListingHandler(svc, marker)
	ctx := context.Background()

	insert := `{"table":"services","type":"INSERT","data":[{"id":"1","user_id":"7"},{"id":"2","user_id":"8"},{"id":"3","user_id":"9"}]}`
	assert.ErrorIs(t, h.logic(ctx, message("canal-services", insert)), context.Canceled)
	assert.Equal(t, []recorded{{userID: 7, kind: service.ActionServicePost}}, svc.calls)
	assert.NotContains(t, marker.keys, consts.ListingScoredPrefix+"2")

	// 同一条消息重投，已计分的第一行跳过
	require.NoError(t, h.logic(ctx, message("canal-services", insert)))
	assert.Equal(t, []recorded{
		{userID: 7, kind: service.ActionServicePost},
		{userID: 8, kind: service.ActionServicePost},
		{userID: 9, kind: service.ActionServicePost},
	}, svc.calls)

	require.NoError(t, h.logic(ctx, message("canal-services", insert)))
	assert.Len(t, svc.calls, 3)
}

func TestStrToUint64(t *testing.T) {
	assert.EqualValues(t, 42, StrToUint64("42"))
	assert.EqualValues(t, 42, StrToUint64(float64(42)))
	assert.Zero(t, StrToUint64("abc"))
	assert.Zero(t, StrToUint64(nil))
	assert.EqualValues(t, 9, StrToUint64(int64(9)))
}

func TestNewSaramaConfig(t *testing.T) {
	c := newSaramaConfig(config.KafkaConfig{})
	assert.Equal(t, sarama.OffsetNewest, c.Consumer.Offsets.Initial)
	assert.False(t, c.Consumer.Offsets.AutoCommit.Enable)
	assert.Equal(t, 10*time.Second, c.Consumer.Group.Session.Timeout)
	assert.Equal(t, clientID, c.ClientID)

	c = newSaramaConfig(config.KafkaConfig{
		Sasl:     config.SaslConfig{Enable: true, Username: "u", Password: "p"},
		Consumer: config.ConsumerConfig{InitialOffset: "oldest", SessionTimeout: 20},
	})
	assert.Equal(t, sarama.OffsetOldest, c.Consumer.Offsets.Initial)
	assert.Equal(t, 20*time.Second, c.Consumer.Group.Session.Timeout)
	assert.True(t, c.Net.SASL.Enable)
	assert.NoError(t, c.Validate())
}
