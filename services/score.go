package services

import "github.com/junzhij/esports-tournament-live/models"

// The running score is derived two separate ways on purpose: from
// published results after a result publish or rollback, and from the
// admin-supplied numbers on a manual override. Both apply the same
// ceil(best_of/2) finish rule, but a manual override is allowed to
// diverge from the result-derived count.

// countPublishedWins tallies wins per side across published results
// only; drafts never influence the score.
func countPublishedWins(games []*models.Game) (scoreA, scoreB int) {
	for _, game := range games {
		if game.ResultPublished == nil {
			continue
		}
		switch game.ResultPublished.Winner {
		case models.TeamSideA:
			scoreA++
		case models.TeamSideB:
			scoreB++
		}
	}
	return scoreA, scoreB
}

// deriveStatus applies the finish rule to a pair of scores.
func deriveStatus(bestOf, scoreA, scoreB int) models.MatchStatus {
	winTarget := (bestOf + 1) / 2
	if scoreA >= winTarget || scoreB >= winTarget {
		return models.MatchStatusFinished
	}
	return models.MatchStatusRunning
}

// recalcFromPublished is the result-derived path: scan published
// results, count wins, derive status.
func recalcFromPublished(games []*models.Game, bestOf int) (scoreA, scoreB int, status models.MatchStatus) {
	scoreA, scoreB = countPublishedWins(games)
	return scoreA, scoreB, deriveStatus(bestOf, scoreA, scoreB)
}
