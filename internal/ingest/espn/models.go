package espn

// Scoreboard is the subset of the ESPN scoreboard payload used to discover
// the day's games.
type Scoreboard struct {
	Events []ScoreboardEvent `json:"events"`
}

// ScoreboardEvent is a single game entry on the scoreboard.
type ScoreboardEvent struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       EventStatus   `json:"status"`
	Competitions []Competition `json:"competitions"`
}

type EventStatus struct {
	Period       int    `json:"period"`
	DisplayClock string `json:"displayClock"`
	Type         struct {
		State     string `json:"state"`
		Completed bool   `json:"completed"`
	} `json:"type"`
}

type Competition struct {
	Competitors []Competitor `json:"competitors"`
}

type Competitor struct {
	HomeAway string   `json:"homeAway"`
	Team     TeamInfo `json:"team"`
}

type TeamInfo struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}

// Summary is the subset of the per-game summary payload carrying the box score.
type Summary struct {
	Boxscore struct {
		Players []TeamPlayers `json:"players"`
	} `json:"boxscore"`
}

// TeamPlayers is one team's block of player statistics.
type TeamPlayers struct {
	Team       TeamInfo    `json:"team"`
	Statistics []StatGroup `json:"statistics"`
}

// StatGroup carries parallel label and per-athlete value arrays.
type StatGroup struct {
	Names    []string       `json:"names"`
	Labels   []string       `json:"labels"`
	Athletes []AthleteStats `json:"athletes"`
}

type AthleteStats struct {
	Athlete struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		ShortName   string `json:"shortName"`
	} `json:"athlete"`
	Starter    bool     `json:"starter"`
	DidNotPlay bool     `json:"didNotPlay"`
	Stats      []string `json:"stats"`
}

// GameEvent identifies one game and its two teams.
type GameEvent struct {
	ID       string `json:"id"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	State    string `json:"state"`
}

// Started reports whether the game is in progress or finished.
func (g GameEvent) Started() bool {
	return g.State == stateInProgress || g.State == stateFinal
}

// RawGame is a game event together with its two team-player blocks.
type RawGame struct {
	Event GameEvent      `json:"event"`
	Teams [2]TeamPlayers `json:"teams"`
}
