package consts

// Context Key，鉴权中间件写入
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
	RolesKey    = "roles"
)

const (
	DefaultAvatarURL = "default_avatar.png"
)

// AttachmentImage 附件类型
const (
	AttachmentImage    = "image"
	AttachmentDocument = "document"
)

// InquirySeedFormat 由咨询创建会话时写入的第一条消息
const InquirySeedFormat = "📋 Inquiry Reference: %s\n\n%s"

// HeaderRequestedWith Ajax 请求头，命中时返回 JSON 而不是重定向
const (
	HeaderRequestedWith = "X-Requested-With"
	XMLHttpRequest      = "XMLHttpRequest"
)
