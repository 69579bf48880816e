package wire

import (
	"KoraChat/internal/api"
	"KoraChat/internal/api/config"
	"KoraChat/internal/api/handler"
	"KoraChat/internal/gateway"
	"KoraChat/internal/job"
	"KoraChat/internal/pkg/cron"
	"KoraChat/internal/pkg/hub"
	"KoraChat/internal/pkg/kafka"
	"KoraChat/internal/pkg/mongo"
	"KoraChat/internal/pkg/redis"
	"KoraChat/internal/repository"
	"KoraChat/internal/service"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const (
	createLockTTL     = 10 * time.Second
	createLockRetries = 100
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	Hub          *hub.Hub
	Relay        *redis.Relay // broker 为 local 时为 nil
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
}

// BuildApplication mongoDB 与 rdb 按配置可以为 nil
func BuildApplication(db *gorm.DB, mongoDB *mongodriver.Database, rdb *goredis.Client, cfg *config.Config) (*ApplicationContainer, error) {
	chatCfg := cfg.Chat

	userRepo := repository.NewUserRepo(db)
	listingRepo := repository.NewListingRepo(db)

	var messages repository.MessageRepo
	switch chatCfg.MessageStore {
	case "", "mysql":
	case "mongo":
		if mongoDB == nil {
			return nil, fmt.Errorf("chat.message_store is mongo but mongo is not configured")
		}
		messages = mongo.NewMessageRepo(mongoDB)
	default:
		return nil, fmt.Errorf("unknown chat.message_store %q", chatCfg.MessageStore)
	}
	store := repository.NewStore(db, messages)

	var locker service.Locker
	switch chatCfg.Locker {
	case "", "local":
		locker = service.NewLocalLocker()
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("chat.locker is redis but redis is not configured")
		}
		locker = redis.NewLocker(createLockTTL, createLockRetries)
	default:
		return nil, fmt.Errorf("unknown chat.locker %q", chatCfg.Locker)
	}

	h := hub.New(chatCfg.HubShards)
	var relay *redis.Relay
	switch chatCfg.Broker {
	case "", "local":
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("chat.broker is redis but redis is not configured")
		}
		relay = redis.NewRelay(rdb, h)
		h.SetBroker(relay)
	default:
		return nil, fmt.Errorf("unknown chat.broker %q", chatCfg.Broker)
	}
	log.Info("chat components selected", "message_store", chatCfg.MessageStore, "locker", chatCfg.Locker, "broker", chatCfg.Broker)

	conversationService := service.NewConversationService(store, userRepo, listingRepo, locker)
	messageService := service.NewMessageService(store, userRepo, chatCfg)
	gw := gateway.New(h, conversationService, messageService, chatCfg)

	handlers := &api.HandlersGroup{
		ChatHandler: handler.NewChatHandler(conversationService, messageService, gw, chatCfg),
		WsHandler:   handler.NewWsHandler(gw, cfg.Server.AllowOrigins),
	}
	router := api.SetupRouter(handlers, cfg.Server.AllowOrigins)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, userRepo, listingRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(cfg.Cron.HubStatsSpec, job.NewHubStatsJob(h))

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		Hub:          h,
		Relay:        relay,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
	}, nil
}
