package aggregate

import (
	"time"

	"stayonboard-server-go/internal/domain/color"
)

// Status is the overall outcome of a validation.
type Status string

const (
	StatusPass    Status = "pass"
	StatusPartial Status = "partial"
	StatusFail    Status = "fail"
)

// Severity grades an individual issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one concrete problem found during validation, with the criterion
// that failed and a human-readable suggestion.
type Issue struct {
	Criterion  string   `json:"criterion"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ColorMatch reports how one extracted color relates to the brand palette.
type ColorMatch struct {
	Detected        color.RGB `json:"detected"`
	Weight          float64   `json:"weight"`
	Nearest         color.RGB `json:"nearest"`
	Distance        float64   `json:"distance"`
	WithinTolerance bool      `json:"within_tolerance"`
}

// Verdict is the complete answer to a validation request. Everything except
// ComputedAt is a pure function of the request and the referenced pixels.
type Verdict struct {
	Status       Status                `json:"status"`
	Issues       []Issue               `json:"issues,omitempty"`
	Scores       map[string]float64    `json:"scores,omitempty"`
	ColorMatches []ColorMatch          `json:"color_matches,omitempty"`
	Samples      []color.Sample        `json:"samples,omitempty"`
	Contrast     *color.ContrastResult `json:"contrast,omitempty"`
	ComputedAt   time.Time             `json:"computed_at"`
}

// Record is one append-only history entry: the request as submitted, the
// verdict it produced, and who asked.
type Record struct {
	ID        string    `json:"id"`
	Principal string    `json:"principal"`
	Request   Request   `json:"request"`
	Verdict   Verdict   `json:"verdict"`
	FromCache bool      `json:"from_cache"`
	CreatedAt time.Time `json:"created_at"`
}
