package query

import (
	"context"
	"fmt"

	"github.com/tair/taghub/internal/inventory/domain"
)

// ListTagsQuery represents the query to list tags
type ListTagsQuery struct {
	HubID  string
	LotID  string
	Status domain.TagStatus
	Limit  int
}

// ListTagsHandler handles list tags query
type ListTagsHandler struct {
	store domain.Store
}

// NewListTagsHandler creates a new list tags handler
func NewListTagsHandler(store domain.Store) *ListTagsHandler {
	return &ListTagsHandler{store: store}
}

// Handle executes the list tags query
func (h *ListTagsHandler) Handle(ctx context.Context, query ListTagsQuery) ([]domain.Tag, error) {
	filter := domain.TagFilter{HubID: query.HubID, LotID: query.LotID, Limit: clampLimit(query.Limit)}
	if query.Status != "" {
		if !query.Status.IsValid() {
			return nil, domain.NewInvalidArgument("unknown tag status %q", query.Status)
		}
		filter.Statuses = []domain.TagStatus{query.Status}
	}

	var tags []domain.Tag
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		var err error
		tags, err = tx.ListTags(filter)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	return tags, nil
}

// GetTagQuery represents the query to get a tag
type GetTagQuery struct {
	TagID string
}

// TagDetail is a tag together with the quarantine state of its lot.
type TagDetail struct {
	domain.Tag
	Quarantined bool `json:"quarantined"`
}

// GetTagHandler handles get tag query
type GetTagHandler struct {
	store domain.Store
}

// NewGetTagHandler creates a new get tag handler
func NewGetTagHandler(store domain.Store) *GetTagHandler {
	return &GetTagHandler{store: store}
}

// Handle executes the get tag query
func (h *GetTagHandler) Handle(ctx context.Context, query GetTagQuery) (*TagDetail, error) {
	var detail TagDetail
	err := h.store.View(ctx, func(tx domain.ReadTx) error {
		tag, err := lookup(tx.GetTag, "tag", query.TagID)
		if err != nil {
			return err
		}
		detail.Tag = *tag
		detail.Quarantined, err = domain.IsLotQuarantined(tx, tag.LotID)
		if err != nil {
			return fmt.Errorf("failed to check quarantine: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
