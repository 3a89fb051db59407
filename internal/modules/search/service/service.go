package search

import (
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"

	"tandera.com/daypillar/internal/entity"
)

// SearchService keeps the actions index in sync and serves full-text queries.
// Index writes are best effort: the database stays the source of truth and a
// missed write only makes a record unsearchable, never incorrect.
type SearchService interface {
	IndexAction(action *entity.Action) error
	DeleteAction(id string) error
	SearchActions(userID, query string, limit int64) ([]ActionHit, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	filterableAttrs := []string{"user_id", "status", "pillar_ids"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index("actions").UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update actions filterable attributes: %v", err)
	}

	sortableAttrs := []string{"target_date", "created_at"}
	if _, err := s.client.Index("actions").UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update actions sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type actionDoc struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	PillarIDs   []string `json:"pillar_ids"`
	TargetDate  int64    `json:"target_date"`
	CreatedAt   int64    `json:"created_at"`
}

// ActionHit is one search result row.
type ActionHit struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	PillarIDs   []string `json:"pillar_ids"`
	TargetDate  int64    `json:"target_date"`
}

func (s *searchService) cleanContentForIndex(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *searchService) IndexAction(action *entity.Action) error {
	doc := actionDoc{
		ID:          action.ID.String(),
		UserID:      action.UserID.String(),
		Title:       s.cleanContentForIndex(action.Title),
		Description: s.cleanContentForIndex(action.Description),
		Status:      string(action.Status),
		PillarIDs:   action.PillarIDs,
		TargetDate:  action.TargetDate.Unix(),
		CreatedAt:   action.CreatedAt.Unix(),
	}

	task, err := s.client.Index("actions").AddDocuments([]actionDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed action %s, task id: %d", action.ID, task.TaskUID)
	return nil
}

func (s *searchService) DeleteAction(id string) error {
	_, err := s.client.Index("actions").DeleteDocument(id)
	return err
}

func (s *searchService) SearchActions(userID, query string, limit int64) ([]ActionHit, error) {
	if limit <= 0 {
		limit = 20
	}

	res, err := s.client.Index("actions").Search(query, &meilisearch.SearchRequest{
		Filter: fmt.Sprintf("user_id = %q", userID),
		Limit:  limit,
		Sort:   []string{"created_at:desc"},
	})
	if err != nil {
		return nil, err
	}

	hits := make([]ActionHit, 0, len(res.Hits))
	for _, raw := range res.Hits {
		var hit ActionHit
		if err := raw.Decode(&hit); err != nil {
			log.Printf("Failed to decode search hit: %v", err)
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func strPtr(s string) *string {
	return &s
}
