package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/zer0-A1/emineon-search/internal/model"
	"github.com/zer0-A1/emineon-search/internal/pkg/dbutil"
	apperrors "github.com/zer0-A1/emineon-search/internal/pkg/errors"
)

// EntityRepo reads current source-entity state for projection. It never
// writes; CRUD on these tables belongs to the main application.
type EntityRepo struct {
	db *sql.DB
}

func NewEntityRepo(db *sql.DB) *EntityRepo {
	return &EntityRepo{db: db}
}

func (r *EntityRepo) FetchCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	cols := []string{"id", "first_name", "last_name", "headline", "summary", "city", "skills", "tags"}
	sqlStr, args, err := builder.BuildSelect("candidates", map[string]interface{}{"id": id}, cols)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var c model.Candidate
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Headline, &c.Summary, &c.City, &c.Skills, &c.Tags); err != nil {
		return nil, mapFetchErr(err)
	}
	return &c, nil
}

func (r *EntityRepo) FetchJob(ctx context.Context, id string) (*model.Job, error) {
	cols := []string{"id", "title", "client_name", "location", "description", "requirements", "status"}
	sqlStr, args, err := builder.BuildSelect("jobs", map[string]interface{}{"id": id}, cols)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var j model.Job
	if err := row.Scan(&j.ID, &j.Title, &j.ClientName, &j.Location, &j.Description, &j.Requirements, &j.Status); err != nil {
		return nil, mapFetchErr(err)
	}
	return &j, nil
}

func (r *EntityRepo) FetchClientContact(ctx context.Context, id string) (*model.ClientContact, error) {
	cols := []string{"id", "first_name", "last_name", "company", "role", "notes"}
	sqlStr, args, err := builder.BuildSelect("client_contacts", map[string]interface{}{"id": id}, cols)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var c model.ClientContact
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Company, &c.Role, &c.Notes); err != nil {
		return nil, mapFetchErr(err)
	}
	return &c, nil
}

func (r *EntityRepo) FetchCrmDocument(ctx context.Context, id string) (*model.CrmDocument, error) {
	cols := []string{"id", "title", "kind", "body"}
	sqlStr, args, err := builder.BuildSelect("crm_documents", map[string]interface{}{"id": id}, cols)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var d model.CrmDocument
	if err := row.Scan(&d.ID, &d.Title, &d.Kind, &d.Body); err != nil {
		return nil, mapFetchErr(err)
	}
	return &d, nil
}

func (r *EntityRepo) ListCandidateIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, "candidates")
}

func (r *EntityRepo) ListJobIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, "jobs")
}

func (r *EntityRepo) ListClientContactIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, "client_contacts")
}

func (r *EntityRepo) ListCrmDocumentIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, "crm_documents")
}

func (r *EntityRepo) listIDs(ctx context.Context, table string) ([]string, error) {
	sqlStr, args, err := builder.BuildSelect(table, map[string]interface{}{"_orderby": "id asc"}, []string{"id"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func mapFetchErr(err error) error {
	if err == sql.ErrNoRows {
		return apperrors.ErrEntityGone
	}
	return err
}
