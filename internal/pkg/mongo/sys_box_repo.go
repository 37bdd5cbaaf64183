package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sysBoxCollection = "sys_box"

type SysBoxRepo interface {
	CreateNotification(ctx context.Context, msg *SysBoxModel) error
	GetNotificationList(ctx context.Context, userID uint64, limit, offset int64) ([]*SysBoxModel, error)
	MarkAsRead(ctx context.Context, userID uint64, id primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, userID uint64) error
	GetUnreadCount(ctx context.Context, userID uint64) (int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*SysBoxModel, error)
}

type sysBoxRepoImpl struct {
	col *mongo.Collection
}

func NewSysBoxRepo(db *mongo.Database) SysBoxRepo {
	return &sysBoxRepoImpl{
		col: db.Collection(sysBoxCollection),
	}
}

// ensureSysBoxIndexes 收件箱分页索引，以及同一漏斗记录同类通知的唯一索引
func ensureSysBoxIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(sysBoxCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "receiver_id", Value: 1}, {Key: "type", Value: 1}, {Key: "target_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_receiver_type_target"),
		},
	})
	return err
}

// CreateNotification 按 (receiver_id, type, target_id) 幂等写入，重复投递的同一条漏斗通知只保留第一次
func (s *sysBoxRepoImpl) CreateNotification(ctx context.Context, msg *SysBoxModel) error {
	filter := bson.M{"receiver_id": msg.ReceiverID, "type": msg.Type, "target_id": msg.TargetID}
	update := bson.M{"$setOnInsert": bson.M{
		"sender_id":  msg.SenderID,
		"content":    msg.Content,
		"payload":    msg.Payload,
		"is_read":    false,
		"created_at": msg.CreatedAt,
	}}
	res, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
		msg.ID = id
	}
	return nil
}

// GetNotificationList 按时间倒序分页
func (s *sysBoxRepoImpl) GetNotificationList(ctx context.Context, userID uint64, limit, offset int64) ([]*SysBoxModel, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.col.Find(ctx, bson.M{"receiver_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	list := make([]*SysBoxModel, 0, limit)
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *sysBoxRepoImpl) MarkAsRead(ctx context.Context, userID uint64, id primitive.ObjectID) error {
	result, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "receiver_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *sysBoxRepoImpl) MarkAllAsRead(ctx context.Context, userID uint64) error {
	_, err := s.col.UpdateMany(ctx,
		bson.M{"receiver_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	return err
}

func (s *sysBoxRepoImpl) GetUnreadCount(ctx context.Context, userID uint64) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"receiver_id": userID, "is_read": false})
}

func (s *sysBoxRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*SysBoxModel, error) {
	var msg SysBoxModel
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
