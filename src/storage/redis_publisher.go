package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
)

// -----------------------------------------------------------------------------

const (
	publisherQueueSize = 64
	publishTimeout     = 2 * time.Second

	defaultRedisChannel   = "dashboard:frames"
	defaultRedisLatestKey = "dashboard:latest"
)

// RedisClient is the part of *redis.Client the publisher uses.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

type redisMessage struct {
	Type  string            `json:"type"`
	Frame *models.MFrame    `json:"frame,omitempty"`
	Link  models.LinkStatus `json:"link,omitempty"`
}

type redisJob struct {
	payload []byte
	latest  bool
}

// -----------------------------------------------------------------------------
// RedisPublisher fans frames out to other consumers over a redis channel and
// keeps the most recent one under a key for late joiners.
// -----------------------------------------------------------------------------

type RedisPublisher struct {
	Channel   string
	LatestKey string
	Logger    *logger.Logger

	client RedisClient
	queue  chan redisJob

	mu      sync.Mutex
	dropped int
}

var _ interfaces.IRenderer = (*RedisPublisher)(nil)

// NewRedisPublisher connects to cfg.Redis.URL and verifies the connection.
func NewRedisPublisher(cfg *models.MConfig, log *logger.Logger) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisPublisherWithClient(client, cfg.Redis.Channel, cfg.Redis.LatestKey, log), nil
}

func NewRedisPublisherWithClient(client RedisClient, channel, latestKey string, log *logger.Logger) *RedisPublisher {
	if channel == "" {
		channel = defaultRedisChannel
	}
	if latestKey == "" {
		latestKey = defaultRedisLatestKey
	}
	return &RedisPublisher{
		Channel:   channel,
		LatestKey: latestKey,
		Logger:    log,
		client:    client,
		queue:     make(chan redisJob, publisherQueueSize),
	}
}

// -----------------------------------------------------------------------------

func (p *RedisPublisher) Render(frame *models.MFrame) {
	payload, err := json.Marshal(redisMessage{Type: "frame", Frame: frame, Link: frame.Link})
	if err != nil {
		p.Logger.Error("Failed to encode frame: %v", err)
		return
	}
	p.enqueue(redisJob{payload: payload, latest: true})
}

func (p *RedisPublisher) SetLinkStatus(status models.LinkStatus) {
	payload, _ := json.Marshal(redisMessage{Type: "link", Link: status})
	p.enqueue(redisJob{payload: payload})
}

func (p *RedisPublisher) enqueue(job redisJob) {
	select {
	case p.queue <- job:
	default:
		p.mu.Lock()
		p.dropped++
		n := p.dropped
		p.mu.Unlock()
		p.Logger.Debug("Redis queue full, %d messages dropped", n)
	}
}

// -----------------------------------------------------------------------------

// Run publishes queued messages until ctx is cancelled.
func (p *RedisPublisher) Run(ctx context.Context) {
	defer p.client.Close()

	for {
		select {
		case job := <-p.queue:
			p.publish(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, job redisJob) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if job.latest {
		if err := p.client.Set(ctx, p.LatestKey, job.payload, 0).Err(); err != nil {
			p.Logger.Warning("Redis SET %s failed: %v", p.LatestKey, err)
		}
	}
	if err := p.client.Publish(ctx, p.Channel, job.payload).Err(); err != nil {
		p.Logger.Warning("Redis PUBLISH %s failed: %v", p.Channel, err)
	}
}
