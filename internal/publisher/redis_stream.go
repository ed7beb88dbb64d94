package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fortuna/halftime/internal/live"
	"github.com/redis/go-redis/v9"
)

const (
	// LiveStream receives one entry per in-progress game on every fetch.
	LiveStream = "games.live.basketball_nba"
	// StreamMaxLen caps the stream; trimming is approximate.
	StreamMaxLen = 1000
)

// StreamWriter is the subset of the Redis client the publisher needs.
type StreamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// GameSnapshot is the payload written for one game.
type GameSnapshot struct {
	GameID string               `json:"game_id"`
	Teams  []live.TeamAggregate `json:"teams"`
}

// RedisStreamPublisher publishes live team aggregates to a Redis stream
type RedisStreamPublisher struct {
	client StreamWriter
	stream string
	now    func() time.Time
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client StreamWriter) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: LiveStream,
		now:    time.Now,
	}
}

// Connect parses redisURL and verifies the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// PublishLiveSnapshot writes one stream entry per game found in aggs, in
// first-seen order. It stops at the first failed write.
func (p *RedisStreamPublisher) PublishLiveSnapshot(ctx context.Context, aggs []live.TeamAggregate) error {
	for _, snap := range groupByGame(aggs) {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}

		err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: StreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"game_id":   snap.GameID,
				"data":      string(data),
				"timestamp": p.now().Unix(),
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("publishing game %s: %w", snap.GameID, err)
		}
	}
	return nil
}

func groupByGame(aggs []live.TeamAggregate) []GameSnapshot {
	var out []GameSnapshot
	index := make(map[string]int)
	for _, agg := range aggs {
		i, ok := index[agg.GameID]
		if !ok {
			i = len(out)
			index[agg.GameID] = i
			out = append(out, GameSnapshot{GameID: agg.GameID})
		}
		out[i].Teams = append(out[i].Teams, agg)
	}
	return out
}
