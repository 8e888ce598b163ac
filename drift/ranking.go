package drift

import "sort"

// FeatureRank is one entry of an alert-count ranking.
type FeatureRank struct {
	Feature    string `json:"feature"`
	AlertCount int    `json:"alert_count"`

	// Rank is 1-based; the feature with the most alerts ranks first.
	Rank int `json:"rank"`
}

// RankByAlertCount orders features by how many of their result rows raised
// an alert, most-alerting first. Ties break alphabetically so the ranking is
// deterministic. Features with zero alerts are included.
func RankByAlertCount(rs *ResultSet) []FeatureRank {
	counts := make(map[string]int)
	for _, r := range rs.Results {
		if _, ok := counts[r.Feature]; !ok {
			counts[r.Feature] = 0
		}
		if r.Alert {
			counts[r.Feature]++
		}
	}

	ranks := make([]FeatureRank, 0, len(counts))
	for f, n := range counts {
		ranks = append(ranks, FeatureRank{Feature: f, AlertCount: n})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].AlertCount != ranks[j].AlertCount {
			return ranks[i].AlertCount > ranks[j].AlertCount
		}
		return ranks[i].Feature < ranks[j].Feature
	})
	for i := range ranks {
		ranks[i].Rank = i + 1
	}
	return ranks
}
