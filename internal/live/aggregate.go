package live

import "sort"

type teamKey struct {
	gameID string
	team   string
}

// TeamAggregates sums points and field-goal attempts per team per game and
// resolves each team's opponent total and spread. The result is ordered by
// game id then team abbreviation.
func TeamAggregates(rows []PlayerBoxScoreRow) []TeamAggregate {
	totals := make(map[teamKey]*TeamAggregate)
	opponents := make(map[teamKey]string)

	for _, row := range rows {
		key := teamKey{gameID: row.GameID, team: row.Team}
		agg, ok := totals[key]
		if !ok {
			agg = &TeamAggregate{GameID: row.GameID, Team: row.Team}
			totals[key] = agg
		}
		agg.Points += row.Stats[StatPoints]
		agg.FGAttempts += row.Stats[StatFieldGoalsAtt]
		agg.PlayerCount++
		opponents[key] = row.Opponent
	}

	// The opponent lookup needs every team of the game summed first.
	out := make([]TeamAggregate, 0, len(totals))
	for key, agg := range totals {
		if opp, ok := totals[teamKey{gameID: key.gameID, team: opponents[key]}]; ok {
			agg.OppPoints = opp.Points
			agg.Spread = agg.Points - opp.Points
			agg.HasOpponent = true
		}
		out = append(out, *agg)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].GameID != out[j].GameID {
			return out[i].GameID < out[j].GameID
		}
		return out[i].Team < out[j].Team
	})
	return out
}

// Aggregate joins every row with its team totals, its share of the team's
// points and attempts, the opponent's total and the resulting spread.
// Input order is preserved.
func Aggregate(rows []PlayerBoxScoreRow) []LiveRow {
	byTeam := make(map[teamKey]TeamAggregate)
	for _, agg := range TeamAggregates(rows) {
		byTeam[teamKey{gameID: agg.GameID, team: agg.Team}] = agg
	}

	out := make([]LiveRow, 0, len(rows))
	for _, row := range rows {
		agg := byTeam[teamKey{gameID: row.GameID, team: row.Team}]
		out = append(out, LiveRow{
			PlayerBoxScoreRow: row,
			Aggregate:         agg,
			PTSShare:          share(row.Stats[StatPoints], agg.Points),
			FGAShare:          share(row.Stats[StatFieldGoalsAtt], agg.FGAttempts),
		})
	}
	return out
}

func share(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
