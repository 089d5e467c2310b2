package jobs

import "time"

// ResearchSource is a reference collected by a research job
type ResearchSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Section is a titled block of generated text
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ResearchDetail is the result payload of a research job
type ResearchDetail struct {
	ID       JobID            `json:"id"`
	Topic    string           `json:"topic"`
	Summary  string           `json:"summary"`
	Sources  []ResearchSource `json:"sources,omitempty"`
	Sections []Section        `json:"sections,omitempty"`
}

// SynthesisResult is the result payload of a synthesis job
type SynthesisResult struct {
	ID           JobID  `json:"id"`
	Title        string `json:"title"`
	DocumentPath string `json:"document_path"` // Location of the generated document on the backend
	Format       string `json:"format"`        // e.g. "docx", "pdf"
}

// PlanReport is the result payload of a business plan job
type PlanReport struct {
	ID          JobID     `json:"id"`
	Title       string    `json:"title"`
	Sections    []Section `json:"sections"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Recommendation is a suggested change to the job's input
type Recommendation struct {
	Field     string      `json:"field"`
	Current   interface{} `json:"current,omitempty"`
	Suggested interface{} `json:"suggested,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// Adjustment describes what the caller must change before a needs_adjustment job can continue
type Adjustment struct {
	Message         string           `json:"message"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// AdjustmentFor extracts the adjustment request from a needs_adjustment job.
// Structured recommendations are only read for kinds that support them.
func AdjustmentFor(kind Kind, job Job) (Adjustment, error) {
	adj := Adjustment{Message: job.Error}
	if !kind.SupportsRecommendations {
		return adj, nil
	}
	if _, err := job.Field("recommendations", &adj.Recommendations); err != nil {
		return adj, err
	}
	return adj, nil
}
