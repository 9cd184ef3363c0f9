package domain

import "time"

// AgentID identifies one miner agent within a round. IDs are assigned by
// the external registry and are stable for the lifetime of a registration.
type AgentID int64

// Prediction is one agent's submission for one item. Score, Review and
// Keywords arrive from untrusted agents and may be missing or malformed;
// nothing here is validated at ingress. At most one live prediction exists
// per (item, agent) pair; re-submission overwrites in place.
type Prediction struct {
	ID       int64    `json:"id"`
	ItemID   string   `json:"item_id"`
	AgentID  AgentID  `json:"agent_id"`
	Score    *float64 `json:"score"`
	Review   *string  `json:"review"`
	Keywords []string `json:"keywords"`

	// Analysis metadata, written back after scoring.
	Sentiment      *string  `json:"sentiment,omitempty"`
	KeywordScore   *float64 `json:"keyword_score,omitempty"`
	CoherenceScore *float64 `json:"coherence_score,omitempty"`
	TotalReward    *float64 `json:"total_reward,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RawPrediction is the unvalidated per-item payload an agent returns over
// the wire. Entries may be absent or partially filled.
type RawPrediction struct {
	Score    *float64 `json:"score"`
	Review   *string  `json:"review"`
	Keywords []string `json:"keywords"`
}

// Agent is one entry of the round's roster snapshot. Stake is in raw
// ledger units, not yet normalized.
type Agent struct {
	ID       AgentID `json:"id"`
	Hotkey   string  `json:"hotkey"`
	Endpoint string  `json:"endpoint"`
	Stake    float64 `json:"stake"`
}

// RewardRecord is the final per-agent outcome of one round, consumed by
// the incentive ledger. Reward is nominally 0-100 but is never re-clamped,
// so values above 100 must be tolerated by the consumer.
type RewardRecord struct {
	AgentID AgentID `json:"agent_id"`
	Reward  float64 `json:"reward"`
}
