// Package risk turns the permissions a manifest requests into a score and tier.
package risk

import (
	"maps"

	"github.com/example/manifest-audit/internal/manifest"
)

// Tier buckets a score.
type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MEDIUM"
	TierHigh   Tier = "HIGH"
)

// Thresholds are the inclusive lower bounds of the MEDIUM and HIGH tiers.
type Thresholds struct {
	Medium int `yaml:"medium" json:"medium"`
	High   int `yaml:"high" json:"high"`
}

// DefaultThresholds returns the stock tier floors.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 3, High: 6}
}

// DefaultWeights returns the stock permission weights. Callers get their own copy.
func DefaultWeights() map[string]int {
	return map[string]int{
		"android.permission.READ_SMS":                   5,
		"android.permission.SEND_SMS":                   5,
		"android.permission.RECEIVE_SMS":                4,
		"android.permission.READ_CALL_LOG":              5,
		"android.permission.WRITE_CALL_LOG":             4,
		"android.permission.PROCESS_OUTGOING_CALLS":     4,
		"android.permission.REQUEST_INSTALL_PACKAGES":   5,
		"android.permission.BIND_ACCESSIBILITY_SERVICE": 5,
		"android.permission.READ_CONTACTS":              4,
		"android.permission.WRITE_CONTACTS":             3,
		"android.permission.ACCESS_FINE_LOCATION":       4,
		"android.permission.ACCESS_BACKGROUND_LOCATION": 4,
		"android.permission.ACCESS_COARSE_LOCATION":     2,
		"android.permission.CAMERA":                     4,
		"android.permission.RECORD_AUDIO":               4,
		"android.permission.READ_PHONE_STATE":           3,
		"android.permission.CALL_PHONE":                 3,
		"android.permission.SYSTEM_ALERT_WINDOW":        3,
		"android.permission.MANAGE_EXTERNAL_STORAGE":    4,
		"android.permission.READ_EXTERNAL_STORAGE":      2,
		"android.permission.WRITE_EXTERNAL_STORAGE":     2,
		"android.permission.READ_MEDIA_IMAGES":          2,
		"android.permission.READ_MEDIA_VIDEO":           2,
		"android.permission.BODY_SENSORS":               3,
		"android.permission.BLUETOOTH_CONNECT":          2,
		"android.permission.RECEIVE_BOOT_COMPLETED":     1,
		"android.permission.FOREGROUND_SERVICE":         1,
		"android.permission.POST_NOTIFICATIONS":         1,
		"android.permission.INTERNET":                   1,
	}
}

// Assessment is the score and tier for one document.
type Assessment struct {
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}

// Scorer sums permission weights and buckets the total.
type Scorer struct {
	weights    map[string]int
	thresholds Thresholds
}

// NewScorer builds a scorer. The weights map is copied.
func NewScorer(weights map[string]int, thresholds Thresholds) *Scorer {
	return &Scorer{weights: maps.Clone(weights), thresholds: thresholds}
}

// NewDefaultScorer uses DefaultWeights and DefaultThresholds.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultWeights(), DefaultThresholds())
}

// Weight returns the weight of a permission; unknown permissions weigh 0.
func (s *Scorer) Weight(permission string) int {
	return s.weights[permission]
}

// Score sums the weights of every permission in the set.
func (s *Scorer) Score(permissions manifest.PermissionSet) int {
	total := 0
	for name := range permissions {
		total += s.Weight(name)
	}
	return total
}

// Tier buckets score using the configured floors.
func (s *Scorer) Tier(score int) Tier {
	switch {
	case score >= s.thresholds.High:
		return TierHigh
	case score >= s.thresholds.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

// Assess scores the permission set and tiers the result.
func (s *Scorer) Assess(permissions manifest.PermissionSet) Assessment {
	score := s.Score(permissions)
	return Assessment{Score: score, Tier: s.Tier(score)}
}
