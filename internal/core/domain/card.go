package domain

import "time"

// Card is one printing of a trading card. Embeddings are produced by an
// external generator; the tag cache fields (TagNames, TagConfidenceAvg,
// NeedsReview) are mutated only by the confidence maintainer inside the same
// transaction as the tag mutation that triggered them.
type Card struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ManaCost         string    `json:"mana_cost,omitempty"`
	CMC              int       `json:"cmc"`
	TypeLine         string    `json:"type_line"`
	OracleText       string    `json:"oracle_text,omitempty"`
	Keywords         []string  `json:"keywords,omitempty"`
	Colors           []string  `json:"colors,omitempty"`
	Rarity           string    `json:"rarity,omitempty"`
	Power            *int      `json:"power,omitempty"`
	Toughness        *int      `json:"toughness,omitempty"`
	ReleasedAt       time.Time `json:"released_at"`
	TagNames         []string  `json:"tag_names,omitempty"`
	TagConfidenceAvg *float64  `json:"tag_confidence_avg,omitempty"`
	NeedsReview      bool      `json:"needs_review"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Tag is one node of the read-only tag taxonomy. ParentName is empty for root
// tags.
type Tag struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Category      string `json:"category"`
	ParentName    string `json:"parent_name,omitempty"`
	ComboRelevant bool   `json:"combo_relevant"`
}

// TagSource records where a card/tag association came from.
type TagSource string

const (
	TagSourceModel   TagSource = "model"
	TagSourceManual  TagSource = "manual"
	TagSourcePattern TagSource = "pattern"
)

// CardTag associates one card with one tag. At most one row exists per
// (card, tag) pair; re-extraction replaces rows instead of accumulating them.
type CardTag struct {
	CardID     string    `json:"card_id"`
	TagName    string    `json:"tag_name"`
	Confidence float64   `json:"confidence"`
	Source     TagSource `json:"source"`
	Model      string    `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExtractedTag is one (tag, confidence) pair returned by a generation
// provider before taxonomy validation.
type ExtractedTag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Review reason codes.
const (
	ReviewReasonLowAverage = "low_average_confidence"
	ReviewReasonLowTag     = "low_tag_confidence"
)

// ReviewQueueEntry is one pending human-review item. At most one pending
// entry exists per card; re-triggering updates priority and reason.
type ReviewQueueEntry struct {
	CardID    string    `json:"card_id"`
	Reason    string    `json:"reason"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusRunning     JobStatus = "running"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusRateLimited JobStatus = "rate_limited"
	JobStatusFailed      JobStatus = "failed"
)

// ExtractionJob tracks one bulk extraction run. Observational only: the
// ranking path never reads it.
type ExtractionJob struct {
	ID                  string    `json:"id"`
	Model               string    `json:"model"`
	PromptVersion       string    `json:"prompt_version"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	Status              JobStatus `json:"status"`
	TotalCards          int       `json:"total_cards"`
	ProcessedCards      int       `json:"processed_cards"`
	FailedCards         int       `json:"failed_cards"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
