// Package store provides SQLite-backed storage for papers and citations.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

var ErrPaperNotFound = errors.New("paper not found")

// Paper is one stored paper. A paper known only as a citation target has
// an empty Title until its metadata is backfilled.
type Paper struct {
	ArxivID          string   `json:"arxiv_id" yaml:"arxiv_id"`
	Title            string   `json:"title" yaml:"title"`
	Authors          []string `json:"authors" yaml:"authors"`
	Abstract         string   `json:"abstract" yaml:"abstract"`
	PDFURL           string   `json:"pdf_url" yaml:"pdf_url"`
	PublicationDate  string   `json:"publication_date" yaml:"publication_date"` // YYYY-MM-DD
	AISummary        string   `json:"ai_summary,omitempty" yaml:"ai_summary"`
	Domain           string   `json:"domain,omitempty" yaml:"domain"`
	KeyContributions []string `json:"key_contributions,omitempty" yaml:"key_contributions"`
	Methodology      string   `json:"methodology,omitempty" yaml:"methodology"`
	References       []string `json:"references,omitempty" yaml:"references"`
}

// Complete reports whether the paper carries metadata beyond its id.
func (p *Paper) Complete() bool { return p.Title != "" }

// Citation is a directed CITES edge.
type Citation struct {
	Citing string
	Cited  string
}

// Neighbour is a paper adjacent to another through a citation. Outgoing is
// true when the origin paper cites it.
type Neighbour struct {
	Paper    Paper
	Outgoing bool
}

// DB wraps a SQLite connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	}

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error { return db.conn.Close() }

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

// UpsertPaper inserts p or replaces the metadata of an existing row,
// including a citation-only stub, and records p.References as citations.
func (db *DB) UpsertPaper(ctx context.Context, p Paper) error {
	if p.ArxivID == "" {
		return errors.New("upsert paper: empty arxiv_id")
	}
	authors, err := json.Marshal(nonNil(p.Authors))
	if err != nil {
		return fmt.Errorf("encoding authors: %w", err)
	}
	contributions, err := json.Marshal(nonNil(p.KeyContributions))
	if err != nil {
		return fmt.Errorf("encoding key contributions: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO papers (arxiv_id, title, authors, abstract, pdf_url, publication_date,
		                    ai_summary, domain, key_contributions, methodology, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (arxiv_id) DO UPDATE SET
		    title = excluded.title, authors = excluded.authors, abstract = excluded.abstract,
		    pdf_url = excluded.pdf_url, publication_date = excluded.publication_date,
		    ai_summary = excluded.ai_summary, domain = excluded.domain,
		    key_contributions = excluded.key_contributions, methodology = excluded.methodology,
		    updated_at = excluded.updated_at`,
		p.ArxivID, nullString(p.Title), string(authors), nullString(p.Abstract), nullString(p.PDFURL),
		nullString(p.PublicationDate), nullString(p.AISummary), nullString(p.Domain),
		string(contributions), nullString(p.Methodology), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", p.ArxivID, err)
	}
	if err := addCitations(ctx, tx, p.ArxivID, p.References); err != nil {
		return err
	}
	return tx.Commit()
}

// AddCitations records that citing cites each of cited. Unknown cited papers
// are created as stubs.
func (db *DB) AddCitations(ctx context.Context, citing string, cited []string) error {
	if len(cited) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO papers (arxiv_id) VALUES (?)`, citing); err != nil {
		return fmt.Errorf("inserting stub %s: %w", citing, err)
	}
	if err := addCitations(ctx, tx, citing, cited); err != nil {
		return err
	}
	return tx.Commit()
}

func addCitations(ctx context.Context, tx *sql.Tx, citing string, cited []string) error {
	for _, id := range cited {
		if id == "" || id == citing {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO papers (arxiv_id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("inserting stub %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO citations (citing_id, cited_id) VALUES (?, ?)`, citing, id,
		); err != nil {
			return fmt.Errorf("inserting citation %s -> %s: %w", citing, id, err)
		}
	}
	return nil
}

const paperColumns = `p.arxiv_id, p.title, p.authors, p.abstract, p.pdf_url, p.publication_date,
	p.ai_summary, p.domain, p.key_contributions, p.methodology`

// Paper returns one paper by id.
func (db *DB) Paper(ctx context.Context, id string) (*Paper, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers p WHERE p.arxiv_id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaperNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying paper %s: %w", id, err)
	}
	return p, nil
}

// PublishedOn returns the complete papers published on date (YYYY-MM-DD).
func (db *DB) PublishedOn(ctx context.Context, date string) ([]Paper, error) {
	return db.queryPapers(ctx, `SELECT `+paperColumns+` FROM papers p
		WHERE p.publication_date = ? AND p.title IS NOT NULL
		ORDER BY p.arxiv_id`, date)
}

// Latest returns up to n complete papers, newest publication date first.
func (db *DB) Latest(ctx context.Context, n int) ([]Paper, error) {
	return db.queryPapers(ctx, `SELECT `+paperColumns+` FROM papers p
		WHERE p.publication_date IS NOT NULL AND p.title IS NOT NULL
		ORDER BY p.publication_date DESC, p.arxiv_id
		LIMIT ?`, n)
}

// CitedBy returns the distinct papers cited by any of ids, stubs included.
func (db *DB) CitedBy(ctx context.Context, ids []string) ([]Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	return db.queryPapers(ctx, `SELECT DISTINCT `+paperColumns+` FROM citations c
		JOIN papers p ON p.arxiv_id = c.cited_id
		WHERE c.citing_id IN `+in+`
		ORDER BY p.arxiv_id`, args...)
}

// CitationsFrom returns every citation whose citing paper is in ids.
func (db *DB) CitationsFrom(ctx context.Context, ids []string) ([]Citation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	rows, err := db.conn.QueryContext(ctx, `SELECT citing_id, cited_id FROM citations
		WHERE citing_id IN `+in+` ORDER BY citing_id, cited_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer rows.Close()
	var out []Citation
	for rows.Next() {
		var c Citation
		if err := rows.Scan(&c.Citing, &c.Cited); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Neighbours returns the papers id cites followed by the papers citing id.
func (db *DB) Neighbours(ctx context.Context, id string) ([]Neighbour, error) {
	outgoing, err := db.queryPapers(ctx, `SELECT `+paperColumns+` FROM citations c
		JOIN papers p ON p.arxiv_id = c.cited_id
		WHERE c.citing_id = ? ORDER BY p.arxiv_id`, id)
	if err != nil {
		return nil, err
	}
	incoming, err := db.queryPapers(ctx, `SELECT `+paperColumns+` FROM citations c
		JOIN papers p ON p.arxiv_id = c.citing_id
		WHERE c.cited_id = ? ORDER BY p.arxiv_id`, id)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbour, 0, len(outgoing)+len(incoming))
	for _, p := range outgoing {
		out = append(out, Neighbour{Paper: p, Outgoing: true})
	}
	for _, p := range incoming {
		out = append(out, Neighbour{Paper: p})
	}
	return out, nil
}

// Incomplete returns up to limit ids of papers still lacking title or abstract.
func (db *DB) Incomplete(ctx context.Context, limit int) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT arxiv_id FROM papers
		WHERE title IS NULL OR abstract IS NULL ORDER BY arxiv_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying incomplete papers: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats counts papers and citations.
func (db *DB) Stats(ctx context.Context) (papers, citations int, err error) {
	err = db.conn.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM papers), (SELECT COUNT(*) FROM citations)`,
	).Scan(&papers, &citations)
	if err != nil {
		return 0, 0, fmt.Errorf("counting rows: %w", err)
	}
	return papers, citations, nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error { return db.conn.PingContext(ctx) }

func (db *DB) queryPapers(ctx context.Context, query string, args ...any) ([]Paper, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()
	var out []Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(s scanner) (*Paper, error) {
	var (
		p                                                   Paper
		title, abstract, pdf, date, summary, domain, method sql.NullString
		authors, contributions                              string
	)
	if err := s.Scan(&p.ArxivID, &title, &authors, &abstract, &pdf, &date,
		&summary, &domain, &contributions, &method); err != nil {
		return nil, err
	}
	p.Title, p.Abstract, p.PDFURL = title.String, abstract.String, pdf.String
	p.PublicationDate, p.AISummary, p.Domain, p.Methodology = date.String, summary.String, domain.String, method.String
	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors of %s: %w", p.ArxivID, err)
	}
	if err := json.Unmarshal([]byte(contributions), &p.KeyContributions); err != nil {
		return nil, fmt.Errorf("decoding key contributions of %s: %w", p.ArxivID, err)
	}
	if len(p.Authors) == 0 {
		p.Authors = nil
	}
	if len(p.KeyContributions) == 0 {
		p.KeyContributions = nil
	}
	return &p, nil
}

func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")", args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
