package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicate 唯一约束冲突
var ErrDuplicate = errors.New("duplicate record")

// Store 聚合会话与消息仓储，Transaction 内的仓储共享同一事务
type Store interface {
	Conversations() ConversationRepo
	Messages() MessageRepo
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db       *gorm.DB
	messages MessageRepo // 非空时消息存放在外部存储 (MongoDB)，不参与 MySQL 事务
}

// NewStore messages 为 nil 时消息与会话同库
func NewStore(db *gorm.DB, messages MessageRepo) Store {
	return &gormStore{db: db, messages: messages}
}

func (s *gormStore) Conversations() ConversationRepo {
	return NewConversationRepo(s.db)
}

func (s *gormStore) Messages() MessageRepo {
	if s.messages != nil {
		return s.messages
	}
	return NewMessageRepo(s.db)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, messages: s.messages})
	})
}

// isDuplicateKey 兼容 MySQL 1062 与 SQLite UNIQUE 约束报错
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
