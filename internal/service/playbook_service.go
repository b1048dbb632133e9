package service

import (
	"context"

	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/store"
)

// PlaybookService exposes playbook reads to the boundary layer. Playbook
// mutation happens only inside workers.
type PlaybookService struct {
	playbooks store.PlaybookStore
}

func NewPlaybookService(playbooks store.PlaybookStore) *PlaybookService {
	return &PlaybookService{playbooks: playbooks}
}

// Get returns a playbook with its authoritative counters.
func (s *PlaybookService) Get(ctx context.Context, playbookID string) (*model.Playbook, error) {
	return s.playbooks.FindByID(ctx, playbookID)
}
