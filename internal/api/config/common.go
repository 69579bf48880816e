package config

// Config 配置主体
type Config struct {
	Server               ServerConfig       `mapstructure:"server"`
	DB                   DBConfig           `mapstructure:"database"`
	Redis                RedisConfig        `mapstructure:"redis"`
	Mongo                MongoConfig        `mapstructure:"mongo"`
	MinIO                MinIOConfig        `mapstructure:"minio"`
	Logstash             LogstashConfig     `mapstructure:"logstash"`
	JWT                  JWTConfig          `mapstructure:"jwt"`
	Chat                 ChatConfig         `mapstructure:"chat"`
	Kafka                KafkaConfig        `mapstructure:"kafka"`
	KafkaUserConsumer    KafkaTopicConsumer `mapstructure:"kafka_user_consumer"`
	KafkaListingConsumer KafkaTopicConsumer `mapstructure:"kafka_listing_consumer"`
	KafkaInquiryConsumer KafkaTopicConsumer `mapstructure:"kafka_inquiry_consumer"`
	Cron                 CronConfig         `mapstructure:"cron"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"` // 为空时放行所有来源，同时用于 websocket 握手
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 仅在 chat.message_store 为 mongo 时使用
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// MinIOConfig MinIO配置，附件只保存对象 key，展示时拼接公开地址
type MinIOConfig struct {
	Enable           bool   `mapstructure:"enable"`
	InternalEndpoint string `mapstructure:"internal_endpoint"`
	ExternalEndpoint string `mapstructure:"external_endpoint"`
	AccessKey        string `mapstructure:"access_key"`
	SecretKey        string `mapstructure:"secret_key"`
	AttachmentBucket string `mapstructure:"attachment_bucket"`
	InternalUseSSL   bool   `mapstructure:"internal_use_ssl"`
	ExternalUseSSL   bool   `mapstructure:"external_use_ssl"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Issuer     string `mapstructure:"issuer"`
	ExpireHour int    `mapstructure:"expire_hour"`
}

// ChatConfig 会话与实时推送相关配置
type ChatConfig struct {
	MessageMaxLength int    `mapstructure:"message_max_length"`
	PageSize         int    `mapstructure:"page_size"`
	PageSizeMax      int    `mapstructure:"page_size_max"`
	SendBuffer       int    `mapstructure:"send_buffer"`
	HubShards        int    `mapstructure:"hub_shards"`
	MessageStore     string `mapstructure:"message_store"` // mysql | mongo
	Broker           string `mapstructure:"broker"`        // local | redis
	Locker           string `mapstructure:"locker"`        // local | redis
	RoomURLPrefix    string `mapstructure:"room_url_prefix"`
}

type KafkaConfig struct {
	Enable   bool           `mapstructure:"enable"`
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

// KafkaTopicConsumer canal 表变更 topic 与消费组
type KafkaTopicConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
	Table   string `mapstructure:"table"`
}

type CronConfig struct {
	HubStatsSpec string `mapstructure:"hub_stats_spec"`
}
