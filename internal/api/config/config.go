package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg，环境变量可覆盖同名配置 (chat.page_size -> CHAT_PAGE_SIZE)
func LoadConfig() error {
	// .env 只在本地开发时存在
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

// SetDefaults 默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 100)
	v.SetDefault("database.max_lifetime", 60)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("jwt.issuer", "KoraQuest")
	v.SetDefault("jwt.expire_hour", 24)
	v.SetDefault("chat.message_max_length", 2000)
	v.SetDefault("chat.page_size", 50)
	v.SetDefault("chat.page_size_max", 100)
	v.SetDefault("chat.send_buffer", 64)
	v.SetDefault("chat.hub_shards", 32)
	v.SetDefault("chat.message_store", "mysql")
	v.SetDefault("chat.broker", "local")
	v.SetDefault("chat.locker", "local")
	v.SetDefault("chat.room_url_prefix", "/chat/")
	v.SetDefault("kafka_user_consumer.table", "users")
	v.SetDefault("kafka_listing_consumer.table", "posts")
	v.SetDefault("kafka_inquiry_consumer.table", "property_inquiries")
	v.SetDefault("cron.hub_stats_spec", "0 */5 * * * *")
}
