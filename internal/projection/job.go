package projection

import (
	"context"

	"github.com/zer0-A1/emineon-search/internal/repo"
)

type JobProjector struct {
	entities *repo.EntityRepo
}

func NewJobProjector(entities *repo.EntityRepo) *JobProjector {
	return &JobProjector{entities: entities}
}

func (p *JobProjector) Project(ctx context.Context, sourceID string) (*Projection, error) {
	j, err := p.entities.FetchJob(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return &Projection{
		Title: j.Title,
		Text: joinParts(
			j.Title,
			j.ClientName,
			j.Location,
			j.Description,
			j.Requirements,
		),
		Metadata: map[string]interface{}{
			"client":   j.ClientName,
			"location": j.Location,
			"status":   j.Status,
		},
	}, nil
}

func (p *JobProjector) ListIDs(ctx context.Context) ([]string, error) {
	return p.entities.ListJobIDs(ctx)
}

var _ Projector = (*JobProjector)(nil)
