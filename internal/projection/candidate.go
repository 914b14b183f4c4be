package projection

import (
	"context"
	"strings"

	"github.com/zer0-A1/emineon-search/internal/repo"
)

type CandidateProjector struct {
	entities *repo.EntityRepo
}

func NewCandidateProjector(entities *repo.EntityRepo) *CandidateProjector {
	return &CandidateProjector{entities: entities}
}

func (p *CandidateProjector) Project(ctx context.Context, sourceID string) (*Projection, error) {
	c, err := p.entities.FetchCandidate(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	title := name
	if c.Headline != "" {
		title = name + " - " + c.Headline
	}
	return &Projection{
		Title: title,
		Text: joinParts(
			name,
			c.Headline,
			c.Summary,
			strings.Join(c.Skills, ", "),
			strings.Join(c.Tags, ", "),
			c.City,
		),
		Metadata: map[string]interface{}{
			"city":   c.City,
			"skills": []string(c.Skills),
		},
	}, nil
}

func (p *CandidateProjector) ListIDs(ctx context.Context) ([]string, error) {
	return p.entities.ListCandidateIDs(ctx)
}

var _ Projector = (*CandidateProjector)(nil)
