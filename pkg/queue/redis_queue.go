package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisQueue Redis通知队列实现
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NotificationMessage 队列中的通知消息
type NotificationMessage struct {
	MessageID  string `json:"message_id"`
	Channel    string `json:"channel"`   // notify/email/escalation
	Recipient  string `json:"recipient"` // 接收人（邮件地址或通知目标）
	Subject    string `json:"subject"`
	Content    string `json:"content"`
	EntityType string `json:"entity_type"` // 关联实体类型
	EntityID   uint   `json:"entity_id"`   // 关联实体ID
	RuleID     uint   `json:"rule_id"`     // 产生该消息的规则ID（人工发送时为0）
	Created    int64  `json:"created"`
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewRedisQueue 创建Redis队列实例
func NewRedisQueue(config *Config) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "firelater:notify"
	}

	return &RedisQueue{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *RedisQueue) Ping() error {
	ctx := context.Background()
	return q.client.Ping(ctx).Err()
}

// pendingKey 待发送队列键
func (q *RedisQueue) pendingKey() string {
	return q.prefix + ":pending"
}

// Enqueue 将通知消息加入队列
func (q *RedisQueue) Enqueue(ctx context.Context, message *NotificationMessage) error {
	if message.Created == 0 {
		message.Created = time.Now().Unix()
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化通知消息失败: %v", err)
	}

	if err := q.client.LPush(ctx, q.pendingKey(), data).Err(); err != nil {
		return fmt.Errorf("消息入队失败: %v", err)
	}

	return nil
}

// Dequeue 从队列取出一条通知消息（阻塞timeout，无消息返回nil）
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*NotificationMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.pendingKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	// BRPop返回 [key, value]
	if len(result) < 2 {
		return nil, fmt.Errorf("队列返回格式异常")
	}

	var message NotificationMessage
	if err := json.Unmarshal([]byte(result[1]), &message); err != nil {
		return nil, fmt.Errorf("解析通知消息失败: %v", err)
	}

	return &message, nil
}

// Size 获取待发送消息数量
func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.pendingKey()).Result()
}
