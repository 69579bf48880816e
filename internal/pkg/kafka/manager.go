package kafka

import (
	"KoraChat/internal/api/config"
	"KoraChat/internal/repository"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// consumeRetryDelay Consume 出错（如 broker 不可达）后的重试间隔
var consumeRetryDelay = 3 * time.Second

type consumer struct {
	topic   string
	group   sarama.ConsumerGroup
	handler *ProjectionHandler
}

// ConsumerManager 管理所有 Kafka 消费者
type ConsumerManager struct {
	consumers []*consumer
}

// NewConsumerManager kafka.enable 为 false 时返回空管理器，Start 直接阻塞到退出
func NewConsumerManager(cfg *config.Config, userRepo repository.UserRepo, listingRepo repository.ListingRepo) (*ConsumerManager, error) {
	m := &ConsumerManager{}
	if !cfg.Kafka.Enable {
		return m, nil
	}

	saramaCfg := newSaramaConfig(cfg.Kafka)

	specs := []struct {
		c       config.KafkaTopicConsumer
		handler *ProjectionHandler
	}{
		{cfg.KafkaUserConsumer, NewUserHandler(cfg.KafkaUserConsumer.Table, userRepo)},
		{cfg.KafkaListingConsumer, NewListingHandler(cfg.KafkaListingConsumer.Table, listingRepo)},
		{cfg.KafkaInquiryConsumer, NewInquiryHandler(cfg.KafkaInquiryConsumer.Table, listingRepo)},
	}

	for _, spec := range specs {
		if spec.c.Topic == "" {
			continue
		}
		group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, spec.c.GroupID, saramaCfg)
		if err != nil {
			m.close()
			return nil, err
		}
		m.consumers = append(m.consumers, &consumer{topic: spec.c.Topic, group: group, handler: spec.handler})
	}

	return m, nil
}

// Start 启动所有消费者
func (m *ConsumerManager) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, c := range m.consumers {
		wg.Add(1)
		go func(c *consumer) {
			defer wg.Done()
			c.run(ctx)
		}(c)
	}

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")
	m.close()
	wg.Wait()
	return nil
}

// run 循环消费直到 ctx 结束，rebalance 后 Consume 正常返回时立即重新加入
func (c *consumer) run(ctx context.Context) {
	log.Info("Projection consumer started", "name", c.handler.name, "topic", c.topic)
	for {
		err := c.group.Consume(ctx, []string{c.topic}, c.handler)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			continue
		}
		log.Error("Error from consumer", "name", c.handler.name, "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(consumeRetryDelay):
		}
	}
}

func (m *ConsumerManager) close() {
	for _, c := range m.consumers {
		if err := c.group.Close(); err != nil {
			log.Error("Failed to close consumer", "topic", c.topic, "err", err)
		}
	}
}
