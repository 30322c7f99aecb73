package classifier

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultMinConfidence is used when a template does not set its own threshold.
const DefaultMinConfidence = 7

// FailureReasoning marks leads that passed the gate only because the
// classifier itself was unavailable.
const FailureReasoning = "classification failed, flagged for manual review"

// Judgment is the gate's normalized accept/reject decision.
type Judgment struct {
	Accepted   bool
	Confidence int
	IntentType string
	Reasoning  string
}

// Gate converts a raw classifier result into an accept/reject decision and
// never lets a classifier failure abort a scan. In both modes a failed call
// accepts the message and flags it for manual review: a missed lead costs
// more than a manually reviewed false positive.
type Gate struct {
	classifier Classifier
	mode       Mode
	timeout    time.Duration
	logger     *zap.Logger
}

func NewGate(c Classifier, mode Mode, timeout time.Duration, logger *zap.Logger) *Gate {
	if mode != ModeBinary {
		mode = ModeConfidence
	}
	return &Gate{
		classifier: c,
		mode:       mode,
		timeout:    timeout,
		logger:     logger,
	}
}

func (g *Gate) Evaluate(ctx context.Context, req Request, minConfidence int) Judgment {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.classifier.Classify(ctx, req)
	if err != nil {
		g.logger.Warn("Classifier call failed, accepting for manual review",
			zap.Error(err),
			zap.String("product", req.ProductName))
		return Judgment{
			Accepted:   true,
			Confidence: 0,
			IntentType: "unknown",
			Reasoning:  FailureReasoning,
		}
	}

	if g.mode == ModeBinary {
		return Judgment{
			Accepted:   result.IsClient,
			Confidence: result.Confidence,
			IntentType: result.IntentType,
			Reasoning:  result.Reasoning,
		}
	}

	return Judgment{
		Accepted:   result.Confidence >= minConfidence,
		Confidence: result.Confidence,
		IntentType: result.IntentType,
		Reasoning:  result.Reasoning,
	}
}
