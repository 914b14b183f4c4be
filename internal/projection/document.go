package projection

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"

	"github.com/zer0-A1/emineon-search/internal/repo"
)

type CrmDocumentProjector struct {
	entities *repo.EntityRepo
	md       goldmark.Markdown
}

func NewCrmDocumentProjector(entities *repo.EntityRepo) *CrmDocumentProjector {
	return &CrmDocumentProjector{
		entities: entities,
		md:       goldmark.New(),
	}
}

func (p *CrmDocumentProjector) Project(ctx context.Context, sourceID string) (*Projection, error) {
	d, err := p.entities.FetchCrmDocument(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	// Embedding and lexical ranking use the raw markdown text; the rendered
	// HTML is stored for result presentation only.
	var buf bytes.Buffer
	html := ""
	if err := p.md.Convert([]byte(d.Body), &buf); err == nil {
		html = buf.String()
	}
	return &Projection{
		Title: d.Title,
		Text:  joinParts(d.Title, d.Body),
		HTML:  html,
		Metadata: map[string]interface{}{
			"kind": d.Kind,
		},
	}, nil
}

func (p *CrmDocumentProjector) ListIDs(ctx context.Context) ([]string, error) {
	return p.entities.ListCrmDocumentIDs(ctx)
}

var _ Projector = (*CrmDocumentProjector)(nil)
