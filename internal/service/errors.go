package service

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500
)

// 错误文案直接下发给市场前端与 websocket 客户端
var (
	ErrNotAuthenticated      = errors.New("authentication required")
	ErrNotAParticipant       = errors.New("you are not a participant of this conversation")
	ErrSelfConversation      = errors.New("cannot start a conversation with yourself")
	ErrConversationNotActive = errors.New("conversation is not active")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrEmptyMessage          = errors.New("message cannot be empty")
	ErrParamInvalid          = errors.New("invalid parameter")
	ErrListingNotFound       = errors.New("listing not found")
	ErrInquiryNotFound       = errors.New("inquiry not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrMessageNotFound       = errors.New("message not found")
	ErrAttachmentNotFound    = errors.New("attachment not found")
	ErrMalformedFrame        = errors.New("invalid message format")
	ErrPersistence           = errors.New("temporary failure, please retry")
)

var ErrorMap = map[error]int{
	ErrNotAuthenticated:      Unauthorized,
	ErrNotAParticipant:       Forbidden,
	ErrSelfConversation:      BadRequest,
	ErrConversationNotActive: BadRequest,
	ErrConversationNotFound:  NotFound,
	ErrEmptyMessage:          BadRequest,
	ErrParamInvalid:          BadRequest,
	ErrListingNotFound:       NotFound,
	ErrInquiryNotFound:       NotFound,
	ErrUserNotFound:          NotFound,
	ErrMessageNotFound:       NotFound,
	ErrAttachmentNotFound:    BadRequest,
	ErrMalformedFrame:        BadRequest,
	ErrPersistence:           InternalServerError,
}

// Lookup 找到 err 链上的业务错误
func Lookup(err error) (error, int, bool) {
	for sentinel, code := range ErrorMap {
		if errors.Is(err, sentinel) {
			return sentinel, code, true
		}
	}
	return nil, InternalServerError, false
}

// persistErr 记录存储层原始错误，对外只暴露 ErrPersistence
func persistErr(ctx context.Context, op string, err error) error {
	log.ErrorContext(ctx, "store error", "op", op, "err", err)
	return fmt.Errorf("%w: %s", ErrPersistence, op)
}
