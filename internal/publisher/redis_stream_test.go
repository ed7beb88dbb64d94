package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fortuna/halftime/internal/live"
	"github.com/redis/go-redis/v9"
)

type mockStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (m *mockStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	m.calls = append(m.calls, a)
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	return redis.NewStringResult("1-0", nil)
}

func aggregates() []live.TeamAggregate {
	return []live.TeamAggregate{
		{GameID: "401", Team: "BOS", Points: 60, OppPoints: 50, Spread: 10},
		{GameID: "401", Team: "NYK", Points: 50, OppPoints: 60, Spread: -10},
		{GameID: "402", Team: "LAL", Points: 41, OppPoints: 41},
		{GameID: "402", Team: "GSW", Points: 41, OppPoints: 41},
	}
}

func TestPublishLiveSnapshot_OneEntryPerGame(t *testing.T) {
	stream := &mockStream{}
	pub := NewRedisStreamPublisher(stream)
	pub.now = func() time.Time { return time.Unix(1760000000, 0) }

	if err := pub.PublishLiveSnapshot(context.Background(), aggregates()); err != nil {
		t.Fatalf("PublishLiveSnapshot failed: %v", err)
	}
	if len(stream.calls) != 2 {
		t.Fatalf("expected 2 XADD calls, got %d", len(stream.calls))
	}

	first := stream.calls[0]
	if first.Stream != LiveStream || first.MaxLen != StreamMaxLen || !first.Approx {
		t.Errorf("unexpected stream args %+v", first)
	}

	values := first.Values.(map[string]interface{})
	if values["game_id"] != "401" || values["timestamp"] != int64(1760000000) {
		t.Errorf("unexpected values %v", values)
	}

	var snap GameSnapshot
	if err := json.Unmarshal([]byte(values["data"].(string)), &snap); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(snap.Teams) != 2 || snap.Teams[0].Spread != 10 || snap.Teams[1].Spread != -10 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestPublishLiveSnapshot_Empty(t *testing.T) {
	stream := &mockStream{}
	if err := NewRedisStreamPublisher(stream).PublishLiveSnapshot(context.Background(), nil); err != nil {
		t.Fatalf("PublishLiveSnapshot failed: %v", err)
	}
	if len(stream.calls) != 0 {
		t.Errorf("expected no writes, got %d", len(stream.calls))
	}
}

func TestPublishLiveSnapshot_Error(t *testing.T) {
	stream := &mockStream{err: errors.New("READONLY")}
	err := NewRedisStreamPublisher(stream).PublishLiveSnapshot(context.Background(), aggregates())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(stream.calls) != 1 {
		t.Errorf("expected to stop after first failure, got %d calls", len(stream.calls))
	}
}
