package model

import "github.com/lib/pq"

// Read-only views of the source-of-truth entities. CRUD for these tables is
// owned by the main application; this subsystem only SELECTs the columns
// needed to build search projections.

type Candidate struct {
	ID        string         `json:"id"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Headline  string         `json:"headline"`
	Summary   string         `json:"summary"`
	City      string         `json:"city"`
	Skills    pq.StringArray `json:"skills"`
	Tags      pq.StringArray `json:"tags"`
}

type Job struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ClientName   string `json:"client_name"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	Status       string `json:"status"`
}

type ClientContact struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Role      string `json:"role"`
	Notes     string `json:"notes"`
}

// CrmDocument is a free-form document attached to the CRM (meeting notes,
// call reports, uploaded briefs). Body is markdown.
type CrmDocument struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Body  string `json:"body"`
}
