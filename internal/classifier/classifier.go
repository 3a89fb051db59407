// Package classifier assigns actions to pillars based on their text content.
// The external contract is intentionally narrow: content plus the user's
// existing pillars in, a best-match pillar id set out. The reconciler never
// waits on classification; the pillar write-back re-enters the change feed
// and corrects the ledger snapshot after the fact.
package classifier

import (
	"context"

	"github.com/google/uuid"

	"tandera.com/daypillar/internal/entity"
)

const (
	MethodModel = "model"
	MethodRules = "rules"

	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// PillarRef is the slice of pillar data the contract needs.
type PillarRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Summary is the ephemeral result of one classification call.
type Summary struct {
	MatchedPillarIDs entity.PillarSet `json:"matched_pillar_ids"`
	TrimmedPillarIDs entity.PillarSet `json:"trimmed_pillar_ids"`
	Method           string           `json:"method"`
	ModelUsed        string           `json:"model_used,omitempty"`
	Status           string           `json:"status"`
}

// Contract is the external classification dependency.
type Contract interface {
	// Classify returns the pillar ids that match the content, drawn from the
	// provided set, plus the model identifier when one was used.
	Classify(ctx context.Context, content string, pillars []PillarRef) (entity.PillarSet, string, error)
	Method() string
}

// PillarLister supplies the user's pillar universe.
type PillarLister interface {
	ListRefs(ctx context.Context, userID uuid.UUID) ([]PillarRef, error)
}

// ActionWriter persists the pillar assignment. The implementation must
// publish the resulting change event; that re-entry is how an award issued
// before classification gets its pillar snapshot corrected.
type ActionWriter interface {
	UpdateClassification(ctx context.Context, actionID uuid.UUID, pillars entity.PillarSet, status entity.ClassificationStatus) error
}
