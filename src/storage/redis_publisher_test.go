package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
)

func TestRedisPublisherPublishesFramesAndLatest(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Separate client for the subscriber side
	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).Subscribe(ctx, "frames")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	cfg := &models.MConfig{Redis: models.MRedisConfig{URL: "redis://" + mr.Addr(), Channel: "frames", LatestKey: "latest"}}
	p, err := NewRedisPublisher(cfg, logger.NewNop())
	require.NoError(t, err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		p.Run(runCtx)
		close(done)
	}()
	defer func() {
		stop()
		<-done
	}()

	p.Render(recorderFrame(t, 1700000000000, "OK"))
	p.SetLinkStatus(models.LinkPoll)

	var got []redisMessage
	for len(got) < 2 {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var m redisMessage
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &m))
		got = append(got, m)
	}
	assert.Equal(t, "frame", got[0].Type)
	assert.Equal(t, "OK", got[0].Frame.Status)
	assert.Equal(t, "link", got[1].Type)
	assert.Equal(t, models.LinkPoll, got[1].Link)

	latest, err := mr.Get("latest")
	require.NoError(t, err)
	assert.Contains(t, latest, `"state_ts_ms":1700000000000`)
}

func TestRedisPublisherDefaultsAndBadURL(t *testing.T) {
	p := NewRedisPublisherWithClient(nil, "", "", logger.NewNop())
	assert.Equal(t, defaultRedisChannel, p.Channel)
	assert.Equal(t, defaultRedisLatestKey, p.LatestKey)

	_, err := NewRedisPublisher(&models.MConfig{Redis: models.MRedisConfig{URL: "not a url"}}, logger.NewNop())
	assert.Error(t, err)
}
