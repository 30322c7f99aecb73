package classifier

import "context"

// Mode selects how the classifier judges a message and how the gate reads the
// result.
type Mode string

const (
	// ModeBinary expects a yes/no "is client" decision with reasoning.
	ModeBinary Mode = "binary"
	// ModeConfidence expects a 1-10 confidence score plus an intent label.
	ModeConfidence Mode = "confidence"
)

// Request carries one matched message and its product context.
type Request struct {
	MessageText     string
	ProductName     string
	Keywords        []string
	MatchedKeywords []string
	AuthorName      string
	ChatTitle       string
}

// Result is the raw judgment returned by a classifier backend. Binary mode
// fills IsClient, confidence mode fills Confidence and IntentType; Reasoning
// is always present.
type Result struct {
	IsClient   bool
	Confidence int
	IntentType string
	Reasoning  string
}

// Classifier is a potentially slow, potentially failing remote judgment call.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}
