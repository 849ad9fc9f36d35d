package service

import (
	"math"

	"playportal/internal/config"
)

// Click-interval submissions with at least this many samples and variance
// below the threshold are treated as automated input.
const (
	minClickSamples        = 5
	clickVarianceThreshold = 25.0
)

// defaultLimits apply to games without an anticheat config entry.
var defaultLimits = config.GameLimits{
	MaxScore:     1000000,
	MinPlayTime:  3,
	MaxScoreRate: 1000,
}

// GameData is the client-reported interaction payload attached to a score
// submission. Only click intervals feed the heuristics; the rest is kept
// raw for audit.
type GameData struct {
	ClickIntervals []float64 `json:"click_intervals"`
}

// Verdict is the outcome of an integrity evaluation. An invalid verdict is
// not an error: the score is still recorded, with points zeroed. Flagged
// marks submissions that tripped more than one check for manual review.
type Verdict struct {
	Valid   bool
	Flagged bool
	Reasons []string
}

// IntegrityChecker evaluates submitted scores against the per-game
// plausibility table. The table is loaded once from config and shared with
// every caller; there is exactly one copy of these numbers.
type IntegrityChecker struct {
	limits map[string]config.GameLimits
}

func NewIntegrityChecker(limits map[string]config.GameLimits) *IntegrityChecker {
	if limits == nil {
		limits = map[string]config.GameLimits{}
	}
	return &IntegrityChecker{limits: limits}
}

func (c *IntegrityChecker) limitsFor(gameSlug string) config.GameLimits {
	if l, ok := c.limits[gameSlug]; ok {
		return l
	}
	return defaultLimits
}

// EvaluateScore runs every check and collects all failures, so a flagged
// submission shows the full picture in the audit trail.
func (c *IntegrityChecker) EvaluateScore(gameSlug string, score, playTime int64, gameData *GameData) Verdict {
	limits := c.limitsFor(gameSlug)
	var reasons []string

	if score > limits.MaxScore {
		reasons = append(reasons, "score exceeds game maximum")
	}
	if playTime < limits.MinPlayTime {
		reasons = append(reasons, "play time below plausible minimum")
	}
	if playTime > 0 && float64(score)/float64(playTime) > limits.MaxScoreRate {
		reasons = append(reasons, "score rate exceeds game maximum")
	}
	if gameData != nil && uniformIntervals(gameData.ClickIntervals) {
		reasons = append(reasons, "click timing implausibly uniform")
	}

	return Verdict{
		Valid:   len(reasons) == 0,
		Flagged: len(reasons) >= 2,
		Reasons: reasons,
	}
}

// uniformIntervals is the bot heuristic: human click timing jitters, replay
// scripts don't.
func uniformIntervals(intervals []float64) bool {
	if len(intervals) < minClickSamples {
		return false
	}

	var sum float64
	for _, v := range intervals {
		sum += v
	}
	mean := sum / float64(len(intervals))

	var variance float64
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(intervals))

	return variance < clickVarianceThreshold
}

// CalculatePoints converts a raw score into awarded points. Zero below the
// game's minimum threshold, otherwise round((score/100) * base *
// multiplier), capped at the global per-submission maximum.
func CalculatePoints(score, baseReward int64, difficultyMultiplier float64, minScoreThreshold, maxPerSubmission int64) int64 {
	if score < minScoreThreshold {
		return 0
	}

	points := int64(math.Round(float64(score) / 100.0 * float64(baseReward) * difficultyMultiplier))
	if points < 0 {
		points = 0
	}
	if maxPerSubmission > 0 && points > maxPerSubmission {
		points = maxPerSubmission
	}
	return points
}
