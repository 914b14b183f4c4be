package model

import "fmt"

// SourceType identifies the entity kind a search document was projected from.
type SourceType string

const (
	SourceTypeCandidate     SourceType = "candidate"
	SourceTypeJob           SourceType = "job"
	SourceTypeClientContact SourceType = "client_contact"
	SourceTypeDocument      SourceType = "document"
)

func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeCandidate,
		SourceTypeJob,
		SourceTypeClientContact,
		SourceTypeDocument,
	}
}

func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(s)
	switch st {
	case SourceTypeCandidate, SourceTypeJob, SourceTypeClientContact, SourceTypeDocument:
		return st, nil
	}
	return "", fmt.Errorf("unknown source type: %s", s)
}

func (s SourceType) String() string {
	return string(s)
}
