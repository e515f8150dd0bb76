package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taipulse/internal/domain"
	"taipulse/internal/news"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ArticleArchive = (*SQLiteArchive)(nil)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS articles (
	fingerprint     TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	link            TEXT NOT NULL,
	source          TEXT NOT NULL,
	published       INTEGER NOT NULL,
	summary         TEXT NOT NULL DEFAULT '',
	securities      TEXT NOT NULL DEFAULT '',
	sentiment_label TEXT NOT NULL DEFAULT 'neutral',
	sentiment_score REAL NOT NULL DEFAULT 0,
	keywords        TEXT NOT NULL DEFAULT '',
	first_seen      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published);
`

// SQLiteArchive implements ArticleArchive backed by a SQLite database.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}
	return &SQLiteArchive{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteArchive) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// ArticleArchive implementation
// ---------------------------------------------------------------------------

// InsertArticles appends a batch inside one transaction. Fingerprints already
// archived are skipped, so re-scanning the same sources is idempotent.
func (s *SQLiteArchive) InsertArticles(ctx context.Context, articles []news.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles
			(fingerprint, title, link, source, published, summary,
			 securities, sentiment_label, sentiment_score, keywords, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	inserted := 0
	for _, a := range articles {
		res, err := stmt.ExecContext(ctx,
			a.Fingerprint, a.Title, a.Link, a.Source, a.Published.Unix(), a.Summary,
			strings.Join(a.Securities, ","), string(a.SentimentLabel), a.SentimentScore,
			strings.Join(a.Keywords, ","), now)
		if err != nil {
			return 0, fmt.Errorf("inserting article %s: %w", a.Fingerprint, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

const articleColumns = `fingerprint, title, link, source, published, summary,
	securities, sentiment_label, sentiment_score, keywords`

// RecentArticles returns the newest articles up to limit.
func (s *SQLiteArchive) RecentArticles(ctx context.Context, limit int) ([]news.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY published DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ArticlesBetween returns articles published within [start, end], newest first.
func (s *SQLiteArchive) ArticlesBetween(ctx context.Context, start, end time.Time) ([]news.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE published BETWEEN ? AND ? ORDER BY published DESC`,
		start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// CountArticles returns the total number of archived articles.
func (s *SQLiteArchive) CountArticles(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	return n, err
}

// CountByDay returns per-day article counts for the trailing window, newest
// day first.
func (s *SQLiteArchive) CountByDay(ctx context.Context, days int) ([]DayCount, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.db.QueryContext(ctx,
		`SELECT date(published, 'unixepoch') AS day, COUNT(*)
		 FROM articles WHERE published >= ?
		 GROUP BY day ORDER BY day DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------------------------
// Row helpers
// ---------------------------------------------------------------------------

func scanArticles(rows *sql.Rows) ([]news.Article, error) {
	var articles []news.Article
	for rows.Next() {
		var (
			a          news.Article
			published  int64
			securities string
			label      string
			keywords   string
		)
		if err := rows.Scan(&a.Fingerprint, &a.Title, &a.Link, &a.Source, &published,
			&a.Summary, &securities, &label, &a.SentimentScore, &keywords); err != nil {
			return nil, err
		}
		a.Published = time.Unix(published, 0)
		a.Securities = splitCSV(securities)
		a.SentimentLabel = domain.SentimentLabel(label)
		a.Keywords = splitCSV(keywords)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
