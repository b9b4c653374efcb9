package postgresql

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// marshalDoc encodes v as the JSONB text parameter of a statement
func marshalDoc(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(b), nil
}

// scanDoc reads a single jsonb column into T
func scanDoc[T any](row pgx.Row) (T, error) {
	var out T
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

// collectDocs reads every row of a single jsonb column into []T
func collectDocs[T any](rows pgx.Rows) ([]T, error) {
	defer rows.Close()

	docs := []T{}
	for rows.Next() {
		doc, err := scanDoc[T](rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return docs, nil
}

// jsonTime formats t the way encoding/json does, so stored timestamps compare
// consistently whether written whole or patched.
func jsonTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
