package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	req := require.New(t)
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	req.NoError(v.Unmarshal(&cfg))

	req.Equal(2000, cfg.Chat.MessageMaxLength)
	req.Equal(50, cfg.Chat.PageSize)
	req.Equal(100, cfg.Chat.PageSizeMax)
	req.Equal("mysql", cfg.Chat.MessageStore)
	req.Equal("local", cfg.Chat.Broker)
	req.Equal("/chat/", cfg.Chat.RoomURLPrefix)
	req.Equal(8080, cfg.Server.Port)
}

func TestSetDefaults_OverriddenByConfig(t *testing.T) {
	req := require.New(t)
	v := viper.New()
	SetDefaults(v)
	v.Set("chat.message_max_length", 500)
	v.Set("chat.broker", "redis")

	var cfg Config
	req.NoError(v.Unmarshal(&cfg))

	req.Equal(500, cfg.Chat.MessageMaxLength)
	req.Equal("redis", cfg.Chat.Broker)
}
