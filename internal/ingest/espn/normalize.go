package espn

import (
	"fmt"
	"strings"

	"github.com/fortuna/halftime/internal/live"
	"github.com/fortuna/halftime/internal/metrics"
)

// Normalize flattens every team block of every game into one row per
// player. A team block without statistics is skipped for that team only and
// athletes flagged as did-not-play are left out. Rows come out in feed order.
func Normalize(games []RawGame) ([]live.PlayerBoxScoreRow, error) {
	var rows []live.PlayerBoxScoreRow

	for _, game := range games {
		for i, block := range game.Teams {
			team := strings.ToUpper(block.Team.Abbreviation)
			opponent := strings.ToUpper(game.Teams[1-i].Team.Abbreviation)

			if len(block.Statistics) == 0 {
				continue
			}

			teamRows, err := normalizeTeam(game.Event.ID, team, opponent, block.Statistics[0])
			if err != nil {
				return nil, fmt.Errorf("game %s team %s: %w", game.Event.ID, team, err)
			}
			rows = append(rows, teamRows...)
		}
	}

	metrics.RowsNormalized.Add(float64(len(rows)))
	return rows, nil
}

func normalizeTeam(gameID, team, opponent string, group StatGroup) ([]live.PlayerBoxScoreRow, error) {
	if len(group.Labels) == 0 && len(group.Athletes) > 0 {
		return nil, fmt.Errorf("%w: statistics block has athletes but no labels", ErrMalformedFeed)
	}

	mappings := make([]fieldMapping, len(group.Labels))
	for i, label := range group.Labels {
		mappings[i] = mappingFor(label)
	}

	rows := make([]live.PlayerBoxScoreRow, 0, len(group.Athletes))
	for _, athlete := range group.Athletes {
		if athlete.DidNotPlay {
			continue
		}

		name := athlete.Athlete.DisplayName
		if strings.TrimSpace(name) == "" {
			name = athlete.Athlete.ShortName
		}

		row := live.PlayerBoxScoreRow{
			GameID:   gameID,
			Player:   name,
			Team:     team,
			Opponent: opponent,
			Starter:  athlete.Starter,
			Stats:    make(map[string]int, len(mappings)+3),
		}

		// Labels and values are zipped; a short stats array leaves the
		// trailing columns absent.
		for i, raw := range athlete.Stats {
			if i >= len(mappings) {
				break
			}
			if err := mappings[i].apply(raw, row.Stats); err != nil {
				return nil, fmt.Errorf("player %s: %w", name, err)
			}
		}

		rows = append(rows, row)
	}
	return rows, nil
}
