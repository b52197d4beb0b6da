package domain

type AnswerSource string

const (
	SourceGrounded AnswerSource = "grounded"
	SourceFallback AnswerSource = "fallback"
)

// Answer is the Query result. Context is nil for fallback answers.
type Answer struct {
	Text    string       `json:"answer"`
	Source  AnswerSource `json:"source"`
	Context []Chunk      `json:"context"`
}

// GenerateOptions are per-call settings for the generation service.
type GenerateOptions struct {
	Model       string
	Temperature float64
	System      string
}
