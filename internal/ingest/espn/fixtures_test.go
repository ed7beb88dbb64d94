package espn

var nbaLabels = []string{"MIN", "PTS", "FG", "3PT", "FT", "REB", "AST", "TO", "STL", "BLK", "OREB", "DREB", "PF", "+/-"}

func athlete(name string, starter bool, stats ...string) AthleteStats {
	a := AthleteStats{Starter: starter, Stats: stats}
	a.Athlete.DisplayName = name
	return a
}

// line builds a full stat line in nbaLabels order.
func line(min, pts, fg, threes, ft, pf string) []string {
	return []string{min, pts, fg, threes, ft, "3", "2", "1", "0", "0", "1", "2", pf, "+4"}
}

func teamBlock(abbr string, athletes ...AthleteStats) TeamPlayers {
	return TeamPlayers{
		Team:       TeamInfo{Abbreviation: abbr},
		Statistics: []StatGroup{{Labels: nbaLabels, Athletes: athletes}},
	}
}

func rawGame(id string, home, away TeamPlayers) RawGame {
	return RawGame{
		Event: GameEvent{ID: id, HomeTeam: home.Team.Abbreviation, AwayTeam: away.Team.Abbreviation, State: stateInProgress},
		Teams: [2]TeamPlayers{home, away},
	}
}

func sampleGame() RawGame {
	return rawGame("401585",
		teamBlock("bos",
			athlete("Jayson Tatum", true, line("18", "14", "5-11", "2-6", "2-2", "1")...),
			athlete("Sam Hauser", false, line("3", "0", "--", "--", "--", "0")...),
		),
		teamBlock("nyk",
			athlete("Jalen Brunson", true, line("20", "16", "7-12", "1-3", "1-1", "2")...),
			athlete("Mitchell Robinson", true, line("12", "4", "2-2", "0-0", "0-2", "3")...),
		),
	)
}
