package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across dogs and contacts using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.OrgID}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultDog {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'dog'::text AS type, d.id, d.name AS title,
				ts_headline('english', coalesce(d.notes, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				d.org_id, d.stage, ''::text AS kind,
				ts_rank(d.fts, %s) AS rank
			FROM dogs d
			WHERE d.fts @@ %s AND d.org_id = $2`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultContact {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'contact'::text AS type, c.id, c.name AS title,
				ts_headline('english', coalesce(c.notes, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				c.org_id, ''::text AS stage, c.kind,
				ts_rank(c.fts, %s) AS rank
			FROM contacts c
			WHERE c.fts @@ %s AND c.org_id = $2`, tsQuery, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, org_id, stage, kind
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.OrgID, &r.Stage, &r.Kind); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DogRecord, []ContactRecord, error) {
	dogRows, err := p.db.QueryContext(ctx, `
		SELECT id, org_id, name, breed, microchip, stage, notes
		FROM dogs
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load dogs: %w", err)
	}
	defer dogRows.Close()

	dogs := make([]DogRecord, 0)
	for dogRows.Next() {
		var d DogRecord
		if err := dogRows.Scan(&d.ID, &d.OrgID, &d.Name, &d.Breed, &d.Microchip, &d.Stage, &d.Notes); err != nil {
			return nil, nil, fmt.Errorf("scan dog: %w", err)
		}
		dogs = append(dogs, d)
	}
	if err := dogRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate dogs: %w", err)
	}

	contactRows, err := p.db.QueryContext(ctx, `
		SELECT id, org_id, name, email, phone, kind, notes
		FROM contacts
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load contacts: %w", err)
	}
	defer contactRows.Close()

	contacts := make([]ContactRecord, 0)
	for contactRows.Next() {
		var c ContactRecord
		if err := contactRows.Scan(&c.ID, &c.OrgID, &c.Name, &c.Email, &c.Phone, &c.Kind, &c.Notes); err != nil {
			return nil, nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := contactRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate contacts: %w", err)
	}

	return dogs, contacts, nil
}
