package service

import (
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/mail"
	"TradeTalent/internal/pkg/mongo"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

type memSysBox struct {
	created []*mongo.SysBoxModel
	err     error
}

func (m *memSysBox) CreateNotification(_ context.Context, msg *mongo.SysBoxModel) error {
	if m.err != nil {
		return m.err
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	m.created = append(m.created, msg)
	return nil
}

func (m *memSysBox) GetNotificationList(context.Context, uint64, int64, int64) ([]*mongo.SysBoxModel, error) {
	return m.created, nil
}

func (m *memSysBox) MarkAsRead(_ context.Context, userID uint64, id primitive.ObjectID) error {
	for _, msg := range m.created {
		if msg.ID == id && msg.ReceiverID == userID {
			msg.IsRead = true
			return nil
		}
	}
	return mongoDB.ErrNoDocuments
}

func (m *memSysBox) MarkAllAsRead(context.Context, uint64) error { return nil }

func (m *memSysBox) GetUnreadCount(context.Context, uint64) (int64, error) {
	var n int64
	for _, msg := range m.created {
		if !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memSysBox) GetByID(_ context.Context, id primitive.ObjectID) (*mongo.SysBoxModel, error) {
	for _, msg := range m.created {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, mongoDB.ErrNoDocuments
}

type memMail struct {
	sent []*mail.Message
}

func (m *memMail) Send(_ context.Context, msg *mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type stubUserRepo struct {
	users map[uint64]*model.User
}

func (s *stubUserRepo) GetUserById(_ context.Context, id uint64) (*model.User, error) {
	return s.users[id], nil
}

func (s *stubUserRepo) GetSkillCategories(context.Context, uint64) ([]string, error) {
	return nil, nil
}

func (s *stubUserRepo) SetStatus(context.Context, uint64, string) error { return nil }

func newNotifierUnderTest(box *memSysBox, mailer *memMail) *engagementNotifierImpl {
	users := &stubUserRepo{users: map[uint64]*model.User{
		1: {ID: 1, Username: "alice", Email: "alice@example.com"},
		2: {ID: 2, Username: "bob"},
	}}
	n := NewEngagementNotifier(box, mailer, users).(*engagementNotifierImpl)
	n.now = func() time.Time { return baseTime }
	return n
}

func TestNotifier_NudgeOnlyCreatesNotice(t *testing.T) {
	box, mailer := &memSysBox{}, &memMail{}
	n := newNotifierUnderTest(box, mailer)

	n.StageFired(context.Background(), &StageEvent{UserID: 1, Stage: StageNudge, RecordID: 9, ListingIDs: []uint64{3}})

	require.Len(t, box.created, 1)
	notice := box.created[0]
	assert.Equal(t, consts.SysBoxTypeNudge, notice.Type)
	assert.EqualValues(t, 9, notice.TargetID)
	assert.Equal(t, []uint64{3}, notice.Payload["service_ids"])
	assert.True(t, notice.CreatedAt.Equal(baseTime))
	assert.Empty(t, mailer.sent)
}

func TestNotifier_WarningSendsMail(t *testing.T) {
	box, mailer := &memSysBox{}, &memMail{}
	n := newNotifierUnderTest(box, mailer)
	deadline := baseTime.Add(GracePeriod)

	n.StageFired(context.Background(), &StageEvent{UserID: 1, Stage: StageDeactivationWarning, RecordID: 4, Deadline: deadline})

	require.Len(t, box.created, 1)
	assert.Equal(t, consts.SysBoxTypeDeactivationWarning, box.created[0].Type)
	assert.Equal(t, deadline.Format(time.RFC3339), box.created[0].Payload["deadline"])
	assert.Contains(t, box.created[0].Content, deadline.Format(time.DateOnly))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].To)
	assert.Equal(t, "账号即将停用", mailer.sent[0].Subject)
}

func TestNotifier_MissingAddressOrStoreFailure(t *testing.T) {
	box, mailer := &memSysBox{err: errors.New("mongo down")}, &memMail{}
	n := newNotifierUnderTest(box, mailer)

	n.StageFired(context.Background(), &StageEvent{UserID: 2, Stage: StageDeactivated, RecordID: 5})
	n.StageFired(context.Background(), &StageEvent{UserID: 1, Stage: StageDeactivated, RecordID: 6})

	assert.Empty(t, box.created)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "账号已停用", mailer.sent[0].Subject)
}

func TestNotifier_IgnoresEngaged(t *testing.T) {
	box, mailer := &memSysBox{}, &memMail{}
	n := newNotifierUnderTest(box, mailer)

	n.StageFired(context.Background(), &StageEvent{UserID: 1, Stage: StageEngaged})
	assert.Empty(t, box.created)
	assert.Empty(t, mailer.sent)
}
