// Package risk computes scores from normalized findings. Scoring is pure:
// the same findings and policy always yield the same assessment, with no
// clock, network or randomness involved.
package risk

import (
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// scoringGroups are the four pillars the overall score averages over. Web
// security and data protection findings share a pillar; a group with no
// findings contributes a full score.
var scoringGroups = [][]models.Category{
	{models.CategoryNetworkDefense},
	{models.CategoryWebSecurity, models.CategoryDataProtection},
	{models.CategoryEndpointSecurity},
	{models.CategoryAccessManagement},
}

type Aggregator struct {
	policy models.RiskPolicy
}

func NewAggregator(policy models.RiskPolicy) *Aggregator {
	if len(policy.SeverityWeights) == 0 || len(policy.Bands) == 0 {
		policy = models.DefaultRiskPolicy()
	}
	return &Aggregator{policy: policy}
}

// Assess scores the findings. An empty input is a clean scan: exactly 100
// and the lowest risk band.
func (a *Aggregator) Assess(findings []models.Finding) *models.RiskAssessment {
	categoryScores := make(map[models.Category]int, len(models.AllCategories))
	for _, category := range models.AllCategories {
		categoryScores[category] = a.scoreCategories(findings, []models.Category{category})
	}

	total := 0
	for _, group := range scoringGroups {
		total += a.scoreCategories(findings, group)
	}
	overall := total / len(scoringGroups)
	overall = a.applyCaps(overall, findings)

	level, color := a.Band(overall)
	return &models.RiskAssessment{
		OverallScore:   overall,
		RiskLevel:      level,
		Color:          color,
		CategoryScores: categoryScores,
	}
}

// scoreCategories deducts each matching finding's severity weight from 100,
// clamped to [0,100].
func (a *Aggregator) scoreCategories(findings []models.Finding, categories []models.Category) int {
	deduction := 0
	for _, f := range findings {
		for _, category := range categories {
			if f.Category == category {
				deduction += a.policy.SeverityWeights[f.Severity]
				break
			}
		}
	}
	return clamp(100-deduction, 0, 100)
}

// applyCaps bounds the overall score by the worst directly-observed
// finding. Averaging across pillars must not wash out a confirmed critical
// exposure, and heuristic findings never trigger a cap.
func (a *Aggregator) applyCaps(score int, findings []models.Finding) int {
	worst := models.SeverityInfo
	for _, f := range findings {
		if f.Confidence != models.ConfidenceDefinite {
			continue
		}
		worst = models.MaxSeverity(worst, f.Severity)
	}
	switch worst {
	case models.SeverityCritical:
		if a.policy.CriticalCap > 0 && score > a.policy.CriticalCap {
			return a.policy.CriticalCap
		}
	case models.SeverityHigh:
		if a.policy.HighCap > 0 && score > a.policy.HighCap {
			return a.policy.HighCap
		}
	}
	return score
}

// Band maps a score to its display level and color.
func (a *Aggregator) Band(score int) (models.RiskLevel, string) {
	for _, band := range a.policy.Bands {
		if score >= band.Min {
			return band.Level, band.Color
		}
	}
	last := a.policy.Bands[len(a.policy.Bands)-1]
	return last.Level, last.Color
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
