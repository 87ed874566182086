package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/omnicamp/eventcore/sample/query/repository"
	"github.com/omnicamp/eventcore/sample/query/view"
)

// ErrCampaignNotFound is returned when the read model has no row for the ID.
var ErrCampaignNotFound = errors.New("campaign not found")

type GetCampaignByID struct {
	ID uuid.UUID `json:"id"`
}

// GetCampaignByIDHandler retrieves a campaign view by its ID. Queries read
// exclusively from the read model, never by replaying the event log.
type GetCampaignByIDHandler struct {
	repository *repository.CampaignViewRepository
}

func NewGetCampaignByIDHandler(repository *repository.CampaignViewRepository) *GetCampaignByIDHandler {
	return &GetCampaignByIDHandler{repository: repository}
}

func (g *GetCampaignByIDHandler) Query(ctx context.Context, q GetCampaignByID) (view.CampaignView, error) {
	campaignView, err := g.repository.GetByID(ctx, q.ID)
	if err != nil {
		return view.CampaignView{}, fmt.Errorf("get campaign view by id = %s failed: %w", q.ID, err)
	}
	if campaignView == nil {
		return view.CampaignView{}, fmt.Errorf("campaign with id = %s: %w", q.ID, ErrCampaignNotFound)
	}
	return *campaignView, nil
}
