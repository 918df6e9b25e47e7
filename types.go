// Package repute is a client for a reputation-query API. It supports
// bearer-token authentication and x402 per-request micropayments, where a
// 402 challenge is answered automatically with a signed payment header
// and a single retry.
package repute

// Score is the trust score record for a single subject.
type Score struct {
	Subject         string   `json:"subject"`
	Score           int      `json:"score"`     // normalized 0-100
	RawScore        float64  `json:"raw_score"` // raw ranking value
	Found           bool     `json:"found"`
	GraphSize       int      `json:"graph_size"`
	Followers       int      `json:"followers"`
	CompositeScore  float64  `json:"composite_score"`
	Topics          []string `json:"topics,omitempty"`
	ReportsReceived int      `json:"reports_received"`
}

// Endorser is one scored endorsement source in an audit breakdown.
type Endorser struct {
	Subject string `json:"subject"`
	Score   int    `json:"score"`
}

// Audit explains how a subject's score was computed.
type Audit struct {
	Subject      string             `json:"subject"`
	Score        int                `json:"score"`
	Components   map[string]float64 `json:"components"`
	TopEndorsers []Endorser         `json:"top_endorsers"`
}

// PersonalizedScore scores a target from a specific viewer's perspective.
type PersonalizedScore struct {
	Viewer       string `json:"viewer"`
	Target       string `json:"target"`
	Score        int    `json:"score"`
	GlobalScore  int    `json:"global_score"`
	DirectFollow bool   `json:"direct_follow"`
	MutualFollow bool   `json:"mutual_follow"`
}

// RankedSubject is one leaderboard entry.
type RankedSubject struct {
	Subject   string `json:"subject"`
	Score     int    `json:"score"`
	Followers int    `json:"followers"`
}

// Stats describes the scoring graph behind the service.
type Stats struct {
	GraphSize int    `json:"graph_size"`
	EdgeCount int    `json:"edge_count"`
	LastBuild string `json:"last_build"`
}
