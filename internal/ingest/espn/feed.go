package espn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fortuna/halftime/internal/metrics"
)

const (
	statePregame    = "pre"
	stateInProgress = "in"
	stateFinal      = "post"
)

// FetchLiveGames discovers the date's games on the scoreboard and fetches
// the box score of every game that has started, one request at a time and
// in scoreboard order. Games whose summary does not carry exactly two team
// blocks are dropped.
func (c *Client) FetchLiveGames(ctx context.Context, date time.Time) ([]RawGame, error) {
	board, err := c.FetchScoreboard(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}

	events, err := ParseScoreboard(board)
	if err != nil {
		return nil, err
	}

	games := make([]RawGame, 0, len(events))
	for _, event := range events {
		if !event.Started() {
			continue
		}

		summary, err := c.FetchSummary(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch summary for game %s: %w", event.ID, err)
		}

		if len(summary.Boxscore.Players) != 2 {
			metrics.GamesSkipped.Inc()
			c.logger.Debugw("skipping game without two team blocks",
				"game_id", event.ID, "blocks", len(summary.Boxscore.Players))
			continue
		}

		games = append(games, RawGame{
			Event: event,
			Teams: [2]TeamPlayers{summary.Boxscore.Players[0], summary.Boxscore.Players[1]},
		})
	}

	c.logger.Debugw("fetched live games", "scheduled", len(events), "live", len(games))
	return games, nil
}

// ParseScoreboard converts scoreboard events into GameEvents.
func ParseScoreboard(board *Scoreboard) ([]GameEvent, error) {
	events := make([]GameEvent, 0, len(board.Events))
	for i, ev := range board.Events {
		if strings.TrimSpace(ev.ID) == "" {
			return nil, fmt.Errorf("%w: scoreboard event %d has no id", ErrMalformedFeed, i)
		}

		event := GameEvent{ID: ev.ID, State: ev.Status.Type.State}
		if ev.Status.Type.Completed {
			event.State = stateFinal
		}
		if event.State == "" {
			event.State = statePregame
		}

		if len(ev.Competitions) > 0 {
			for _, comp := range ev.Competitions[0].Competitors {
				abbr := strings.ToUpper(comp.Team.Abbreviation)
				switch comp.HomeAway {
				case "home":
					event.HomeTeam = abbr
				case "away":
					event.AwayTeam = abbr
				}
			}
		}

		events = append(events, event)
	}
	return events, nil
}
