package service

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strings"

	"anoa.com/volunteergoals/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const goalsIndex = "goals"

type MeiliSearchService interface {
	IndexGoal(goal *entity.Goal) error
	DeleteGoal(id string) error
	// SearchGoals returns matching goal ids, best match first.
	SearchGoals(query string, volunteerID *uuid.UUID, limit int) ([]uuid.UUID, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) MeiliSearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterableAttrs := []string{"volunteer_id", "status", "category", "priority"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(goalsIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update goals filterable attributes: %v", err)
	}

	sortableAttrs := []string{"due_date", "progress"}
	if _, err := s.client.Index(goalsIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update goals sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type meiliGoalDoc struct {
	ID          string   `json:"id"`
	VolunteerID string   `json:"volunteer_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	Progress    int      `json:"progress"`
	Tags        []string `json:"tags"`
	Notes       string   `json:"notes"`
	DueDate     int64    `json:"due_date"`
}

func (s *meiliSearchService) newGoalDoc(goal *entity.Goal) meiliGoalDoc {
	return meiliGoalDoc{
		ID:          goal.ID.String(),
		VolunteerID: goal.VolunteerID.String(),
		Title:       s.cleanContentForIndex(goal.Title),
		Description: s.cleanContentForIndex(goal.Description),
		Category:    goal.Category,
		Priority:    string(goal.Priority),
		Status:      string(goal.Status),
		Progress:    goal.Progress,
		Tags:        append([]string{}, goal.Tags...),
		Notes:       s.cleanContentForIndex(strings.Join(goal.Notes, " ")),
		DueDate:     goal.DueDate.Unix(),
	}
}

func (s *meiliSearchService) cleanContentForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	sanitized := s.sanitizer.Sanitize(content)
	return strings.Join(strings.Fields(html.UnescapeString(sanitized)), " ")
}

func (s *meiliSearchService) IndexGoal(goal *entity.Goal) error {
	doc := s.newGoalDoc(goal)
	task, err := s.client.Index(goalsIndex).AddDocuments([]meiliGoalDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed goal %s, task id: %d", goal.ID, task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeleteGoal(id string) error {
	_, err := s.client.Index(goalsIndex).DeleteDocument(id)
	return err
}

func (s *meiliSearchService) SearchGoals(query string, volunteerID *uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 20
	}

	req := &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	}
	if volunteerID != nil {
		req.Filter = volunteerFilter(*volunteerID)
	}

	resp, err := s.client.Index(goalsIndex).Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("meilisearch query failed: %w", err)
	}

	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, err
	}
	return decodeHitIDs(raw)
}

func volunteerFilter(volunteerID uuid.UUID) string {
	return fmt.Sprintf("volunteer_id = '%s'", volunteerID)
}

func decodeHitIDs(raw []byte) ([]uuid.UUID, error) {
	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, fmt.Errorf("failed to decode search hits: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
