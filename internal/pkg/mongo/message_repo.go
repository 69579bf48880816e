package mongo

import (
	"KoraChat/internal/model"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepo 与 repository.MessageRepo 方法一致，chat.message_store=mongo 时替换 MySQL 实现
type MessageRepo struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{
		col:      db.Collection(messageCollection),
		counters: db.Collection(counterCollection),
	}
}

// nextID counters 集合里原子自增
func (s *MessageRepo) nextID(ctx context.Context) (uint64, error) {
	var c counter
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messageCollection},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	return c.Seq, err
}

// SaveMessage 分配 ID 后写入
func (s *MessageRepo) SaveMessage(ctx context.Context, msg *model.Message) error {
	id, err := s.nextID(ctx)
	if err != nil {
		return err
	}
	msg.ID = id
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err = s.col.InsertOne(ctx, fromModel(msg))
	return err
}

func (s *MessageRepo) GetMessage(ctx context.Context, msgID uint64) (*model.Message, error) {
	var doc Message
	err := s.col.FindOne(ctx, bson.M{"_id": msgID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// GetHistory beforeID 为当前页面最旧一条消息的 ID，第一页传 0
func (s *MessageRepo) GetHistory(ctx context.Context, convID uint64, beforeID uint64, limit int) ([]*model.Message, error) {
	filter := bson.M{"conversation_id": convID, "is_deleted": false}
	if beforeID > 0 {
		filter["_id"] = bson.M{"$lt": beforeID}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	return s.find(ctx, filter, findOptions)
}

func (s *MessageRepo) GetLastMessage(ctx context.Context, convID uint64) (*model.Message, error) {
	var doc Message
	err := s.col.FindOne(ctx,
		bson.M{"conversation_id": convID},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *MessageRepo) CountUnread(ctx context.Context, convID, readerID uint64, since *time.Time) (int64, error) {
	filter := bson.M{"conversation_id": convID, "sender_id": bson.M{"$ne": readerID}}
	if since != nil {
		filter["created_at"] = bson.M{"$gt": *since}
	}
	return s.col.CountDocuments(ctx, filter)
}

func (s *MessageRepo) MarkRead(ctx context.Context, msgID uint64, at time.Time) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": msgID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MessageRepo) MarkConversationRead(ctx context.Context, convID, readerID uint64, at time.Time) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"conversation_id": convID, "sender_id": bson.M{"$ne": readerID}, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MessageRepo) SoftDelete(ctx context.Context, msgID uint64, at time.Time) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": msgID, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true, "deleted_at": at}},
	)
	return err
}

func (s *MessageRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Message, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var docs []*Message
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	messages := make([]*model.Message, 0, len(docs))
	for _, d := range docs {
		messages = append(messages, d.toModel())
	}
	return messages, nil
}
