package espn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const scoreboardJSON = `{
  "events": [
    {"id": "100", "status": {"type": {"state": "pre", "completed": false}},
     "competitions": [{"competitors": [
       {"homeAway": "home", "team": {"abbreviation": "mia"}},
       {"homeAway": "away", "team": {"abbreviation": "orl"}}]}]},
    {"id": "200", "status": {"type": {"state": "in", "completed": false}},
     "competitions": [{"competitors": [
       {"homeAway": "home", "team": {"abbreviation": "bos"}},
       {"homeAway": "away", "team": {"abbreviation": "nyk"}}]}]},
    {"id": "300", "status": {"type": {"state": "post", "completed": true}},
     "competitions": [{"competitors": [
       {"homeAway": "home", "team": {"abbreviation": "lal"}},
       {"homeAway": "away", "team": {"abbreviation": "gsw"}}]}]}
  ]
}`

type feedServer struct {
	mu        sync.Mutex
	requested []string
	summaries map[string]interface{}
}

func (f *feedServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Errorf("missing User-Agent header")
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/basketball/nba/scoreboard"):
			w.Write([]byte(scoreboardJSON))
		case strings.HasSuffix(r.URL.Path, "/basketball/nba/summary"):
			id := r.URL.Query().Get("event")
			f.mu.Lock()
			f.requested = append(f.requested, id)
			f.mu.Unlock()
			json.NewEncoder(w).Encode(f.summaries[id])
		default:
			http.NotFound(w, r)
		}
	})
}

func summaryOf(blocks ...TeamPlayers) map[string]interface{} {
	return map[string]interface{}{
		"boxscore": map[string]interface{}{"players": blocks},
	}
}

func TestFetchLiveGames(t *testing.T) {
	game := sampleGame()
	feed := &feedServer{summaries: map[string]interface{}{
		"200": summaryOf(game.Teams[0], game.Teams[1]),
		"300": summaryOf(game.Teams[0]),
	}}
	srv := httptest.NewServer(feed.handler(t))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL})
	games, err := client.FetchLiveGames(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("FetchLiveGames failed: %v", err)
	}

	if len(games) != 1 {
		t.Fatalf("expected 1 game with two team blocks, got %d", len(games))
	}
	if games[0].Event.ID != "200" || games[0].Event.HomeTeam != "BOS" || games[0].Event.AwayTeam != "NYK" {
		t.Errorf("unexpected event %+v", games[0].Event)
	}
	if strings.Join(feed.requested, ",") != "200,300" {
		t.Errorf("expected summaries for started games only, got %v", feed.requested)
	}
}

func TestFetchScoreboard_DateQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL})
	date := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	if _, err := client.FetchScoreboard(context.Background(), date); err != nil {
		t.Fatalf("FetchScoreboard failed: %v", err)
	}
	if gotQuery != "dates=20251115" {
		t.Errorf("expected dates=20251115, got %q", gotQuery)
	}
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`, ErrFeedUnavailable, "status 500"},
		{"html page", http.StatusForbidden, `<html><head><title>Access Denied</title></head><body>nope</body></html>`, ErrFeedUnavailable, "Access Denied"},
		{"invalid json", http.StatusOK, `{"events": [`, ErrMalformedFeed, "decoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := New(Options{BaseURL: srv.URL})
			_, err := client.FetchLiveGames(context.Background(), time.Time{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected message to contain %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestFetchLiveGames_SummaryFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/scoreboard") {
			w.Write([]byte(scoreboardJSON))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(Options{BaseURL: srv.URL})
	_, err := client.FetchLiveGames(context.Background(), time.Time{})
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New(Options{BaseURL: url, Timeout: time.Second})
	_, err := client.FetchScoreboard(context.Background(), time.Time{})
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestParseScoreboard_MissingID(t *testing.T) {
	_, err := ParseScoreboard(&Scoreboard{Events: []ScoreboardEvent{{}}})
	if !errors.Is(err, ErrMalformedFeed) {
		t.Fatalf("expected ErrMalformedFeed, got %v", err)
	}
}
