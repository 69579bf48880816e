package consts

const (
	// IMConversationKey 会话频道 im:conversation:<id>，跨实例转发
	IMConversationKey = "im:conversation:"
	// TokenBlacklistKey 注销后的 token 签名
	TokenBlacklistKey = "auth:blacklist:"
)

const (
	ConversationCreateLock = "lock:conversation:create:"
)
