package dbutil

import (
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize converts gendry-built mysql-flavored SQL into postgres SQL:
// LIMIT offset,count becomes LIMIT count OFFSET offset and ? placeholders
// are rebound to $N.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	loc := limitRegex.FindStringIndex(query)
	if loc != nil {
		prefix := query[:loc[0]]
		qCount := strings.Count(prefix, "?")
		if qCount+1 < len(args) {
			args[qCount], args[qCount+1] = args[qCount+1], args[qCount]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func IsConflict(err error) bool {
	if pgErr, ok := err.(*pq.Error); ok {
		return pgErr.Code == "23505"
	}
	return false
}

// IsCapabilityAbsent reports whether the error indicates the vector
// capability is structurally missing from the database (no pgvector
// extension, no embedding column, no privilege to create them) as opposed
// to a transient failure.
func IsCapabilityAbsent(err error) bool {
	pgErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	switch pgErr.Code {
	case "0A000", // feature_not_supported
		"42704", // undefined_object (extension / operator class)
		"42883", // undefined_function (vector operators)
		"42703", // undefined_column (embedding column)
		"42501", // insufficient_privilege (CREATE EXTENSION)
		"58P01": // undefined_file (extension library missing)
		return true
	}
	return false
}
