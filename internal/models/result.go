package models

import "sort"

// Tier names a storage tier of the fan-out.
type Tier string

const (
	TierAuthoritative Tier = "authoritative"
	TierMirror        Tier = "mirror"
	TierCache         Tier = "cache"
	TierTimeSeries    Tier = "timeseries"
)

// TierOutcome is the result of writing one record to one tier.
type TierOutcome struct {
	Success  bool           `json:"success"`
	Skipped  bool           `json:"skipped,omitempty"`
	Error    string         `json:"error,omitempty"`
	Attempts int            `json:"attempts,omitempty"`
	Stored   map[string]any `json:"stored,omitempty"`
}

// FanOutResult holds one outcome per tier.
type FanOutResult map[Tier]TierOutcome

// OK reports whether every tier succeeded.
func (r FanOutResult) OK() bool {
	return len(r.FailedTiers()) == 0
}

// FailedTiers lists the tiers that did not succeed, sorted by name.
func (r FanOutResult) FailedTiers() []Tier {
	var failed []Tier
	for tier, out := range r {
		if !out.Success {
			failed = append(failed, tier)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return failed
}

// SyncResult counts the rows touched by one reconciliation pass.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
