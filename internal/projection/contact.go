package projection

import (
	"context"
	"strings"

	"github.com/zer0-A1/emineon-search/internal/repo"
)

type ClientContactProjector struct {
	entities *repo.EntityRepo
}

func NewClientContactProjector(entities *repo.EntityRepo) *ClientContactProjector {
	return &ClientContactProjector{entities: entities}
}

func (p *ClientContactProjector) Project(ctx context.Context, sourceID string) (*Projection, error) {
	c, err := p.entities.FetchClientContact(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	title := name
	if c.Company != "" {
		title = name + " (" + c.Company + ")"
	}
	return &Projection{
		Title: title,
		Text: joinParts(
			name,
			c.Company,
			c.Role,
			c.Notes,
		),
		Metadata: map[string]interface{}{
			"company": c.Company,
			"role":    c.Role,
		},
	}, nil
}

func (p *ClientContactProjector) ListIDs(ctx context.Context) ([]string, error) {
	return p.entities.ListClientContactIDs(ctx)
}

var _ Projector = (*ClientContactProjector)(nil)
