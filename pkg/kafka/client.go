// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"matesl-go/internal/config"
	"matesl-go/pkg/log"
	"matesl-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是同一事件的最大处理次数，达到后提交 offset 丢弃。
const maxAttempts = 3

// retryBackoff 是重试前的基础等待时间，按失败次数线性增长。
const retryBackoff = time.Second

// EventHandler 处理一条检索事件，使消费者与具体的存储实现解耦。
type EventHandler interface {
	HandleSearchEvent(ctx context.Context, event tasks.SearchEvent) error
}

// Producer 把检索事件写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// PublishSearchEvent 发送一条检索事件。
func (p *Producer) PublishSearchEvent(ctx context.Context, event tasks.SearchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventID),
		Value: data,
	})
}

// Close 刷新并关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func attemptsKey(eventID string) string {
	return fmt.Sprintf("kafka:attempts:%s", eventID)
}

// StartConsumer 启动检索事件消费者，阻塞直到 ctx 取消。读取失败时等待后重试。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, handler EventHandler, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			if !sleep(ctx, retryBackoff) {
				log.Info("Kafka 消费者已停止")
				return
			}
			continue
		}

		if handleMessage(ctx, m, handler, rdb, retryBackoff) {
			commit(ctx, r, m)
		}
	}
}

// handleMessage 处理一条消息，失败时原地重试，总共最多 maxAttempts 次。
// 返回 true 表示可以提交 offset；ctx 取消时返回 false，消息留给下次消费。
func handleMessage(ctx context.Context, m kafka.Message, handler EventHandler, rdb *redis.Client, backoff time.Duration) bool {
	var event tasks.SearchEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		return true
	}

	for local := int64(1); ; local++ {
		err := handler.HandleSearchEvent(ctx, event)
		if err == nil {
			_ = rdb.Del(ctx, attemptsKey(event.EventID)).Err()
			return true
		}
		log.Errorf("处理检索事件失败: id=%s, Error: %v", event.EventID, err)

		// 失败次数记在 Redis 中，进程重启后继续累计；Redis 异常时使用本地计数
		attempts, incErr := rdb.Incr(ctx, attemptsKey(event.EventID)).Result()
		if incErr != nil {
			attempts = local
		} else {
			_ = rdb.Expire(ctx, attemptsKey(event.EventID), 24*time.Hour).Err()
		}
		if attempts >= maxAttempts {
			log.Errorf("检索事件多次失败(>=%d)，提交 offset 终止重试: id=%s", maxAttempts, event.EventID)
			return true
		}
		if !sleep(ctx, backoff*time.Duration(attempts)) {
			return false
		}
	}
}

// sleep 等待 d，ctx 先结束时返回 false。
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
