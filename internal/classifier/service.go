package classifier

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tandera.com/daypillar/internal/entity"
)

// Service runs the classification contract against an action and writes the
// assignment back onto the record in a single update. That write produces a
// fresh change notification, the deliberate re-entry mechanism the
// reconciler uses to pick up late pillar assignments.
type Service struct {
	contract Contract
	pillars  PillarLister
	actions  ActionWriter

	redisClient *redis.Client
	cacheTTL    time.Duration
	timeout     time.Duration
}

func NewService(contract Contract, pillars PillarLister, actions ActionWriter, redisClient *redis.Client, timeout, cacheTTL time.Duration) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		contract:    contract,
		pillars:     pillars,
		actions:     actions,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		timeout:     timeout,
	}
}

// Classify resolves the pillar set for the action and persists it. On any
// failure the action is marked classification-failed and the error returned;
// the caller logs and swallows it so reconciliation is never blocked.
func (s *Service) Classify(ctx context.Context, action *entity.Action) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	refs, err := s.pillars.ListRefs(ctx, action.UserID)
	if err != nil {
		return s.fail(ctx, action, fmt.Errorf("list pillars: %w", err))
	}

	content := strings.TrimSpace(action.Title + "\n" + action.Description)

	result, modelUsed, cached := s.fromCache(ctx, content, refs)
	if !cached {
		result, modelUsed, err = s.contract.Classify(ctx, content, refs)
		if err != nil {
			return s.fail(ctx, action, fmt.Errorf("classification call: %w", err))
		}
		s.toCache(ctx, content, refs, result, modelUsed)
	}

	summary := &Summary{
		MatchedPillarIDs: result.Diff(action.PillarIDs),
		TrimmedPillarIDs: action.PillarIDs.Diff(result),
		Method:           s.contract.Method(),
		ModelUsed:        modelUsed,
		Status:           StatusCompleted,
	}

	if err := s.actions.UpdateClassification(ctx, action.ID, result, entity.ClassificationClassified); err != nil {
		return s.fail(ctx, action, fmt.Errorf("write back assignment: %w", err))
	}

	return summary, nil
}

func (s *Service) fail(ctx context.Context, action *entity.Action, cause error) (*Summary, error) {
	// Best effort; the record stays completable and awardable either way.
	if err := s.actions.UpdateClassification(context.WithoutCancel(ctx), action.ID, action.PillarIDs, entity.ClassificationFailed); err != nil {
		log.Printf("classifier: failed to mark action %s as failed: %v", action.ID, err)
	}
	return &Summary{Status: StatusFailed, Method: s.contract.Method()}, cause
}

// The cache absorbs feed redeliveries of the same content without re-billing
// the model. Keyed by content plus the pillar universe it was resolved
// against, since a new pillar changes the answer.
func cacheKey(content string, refs []PillarRef) string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)

	sum := sha1.Sum([]byte(content + "|" + strings.Join(ids, ",")))
	return "classify:" + hex.EncodeToString(sum[:])
}

type cachedResult struct {
	PillarIDs entity.PillarSet `json:"pillar_ids"`
	ModelUsed string           `json:"model_used,omitempty"`
}

func (s *Service) fromCache(ctx context.Context, content string, refs []PillarRef) (entity.PillarSet, string, bool) {
	if s.redisClient == nil {
		return nil, "", false
	}

	raw, err := s.redisClient.Get(ctx, cacheKey(content, refs)).Result()
	if err != nil {
		return nil, "", false
	}

	var cached cachedResult
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, "", false
	}
	return cached.PillarIDs, cached.ModelUsed, true
}

func (s *Service) toCache(ctx context.Context, content string, refs []PillarRef, result entity.PillarSet, modelUsed string) {
	if s.redisClient == nil {
		return
	}

	payload, err := json.Marshal(cachedResult{PillarIDs: result, ModelUsed: modelUsed})
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, cacheKey(content, refs), payload, s.cacheTTL).Err(); err != nil {
		log.Printf("classifier: cache write failed: %v", err)
	}
}
