package live

// Canonical statistic columns produced by the box-score normalizer.
const (
	StatMinutes       = "MP"
	StatPoints        = "PTS"
	StatFieldGoals    = "FG"
	StatFieldGoalsAtt = "FGA"
	StatFreeThrows    = "FT"
	StatFreeThrowsAtt = "FTA"
	StatThreesMade    = "TPM"
	StatThreesAtt     = "TPA"
	StatFouls         = "PF"
)

// PlayerBoxScoreRow is one player's normalized live line for a single game.
type PlayerBoxScoreRow struct {
	GameID   string         `json:"game_id"`
	Player   string         `json:"player"`
	Team     string         `json:"team"`
	Opponent string         `json:"opponent"`
	Starter  bool           `json:"starter"`
	Stats    map[string]int `json:"stats"`
}

// Stat returns the named statistic and whether the feed carried it.
func (r PlayerBoxScoreRow) Stat(name string) (int, bool) {
	v, ok := r.Stats[name]
	return v, ok
}

// TeamAggregate holds the per-team totals of one game. When the opponent has
// no rows HasOpponent is false and OppPoints and Spread are zero; the spread
// is unknown, not even.
type TeamAggregate struct {
	GameID      string `json:"game_id"`
	Team        string `json:"team"`
	Points      int    `json:"points"`
	FGAttempts  int    `json:"fg_attempts"`
	OppPoints   int    `json:"opp_points"`
	Spread      int    `json:"spread"`
	HasOpponent bool   `json:"has_opponent"`
	PlayerCount int    `json:"player_count"`
}

// LiveRow is a box-score row joined with its team aggregate.
type LiveRow struct {
	PlayerBoxScoreRow
	Aggregate TeamAggregate `json:"aggregate"`
	PTSShare  float64       `json:"pts_share"`
	FGAShare  float64       `json:"fga_share"`
}

// FindPlayer returns the first row whose player name matches exactly.
func FindPlayer(rows []LiveRow, player string) (LiveRow, bool) {
	for _, row := range rows {
		if row.Player == player {
			return row, true
		}
	}
	return LiveRow{}, false
}
