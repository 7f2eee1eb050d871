package pubdraft

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps a SQLite database holding drafts, preferences, submitted
// articles and image metadata.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the autosave writers and page readers run concurrently;
	// busy_timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS kv (
    namespace TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
);
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    char_count INTEGER NOT NULL,
    status TEXT NOT NULL,
    submitted_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS articles_submitted_at ON articles (submitted_at DESC);
CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`ALTER TABLE articles ADD COLUMN summary TEXT NOT NULL DEFAULT '';`); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return nil
		}
		return err
	}
	return nil
}

// GetValue reads one key of a namespace.
func (s *Store) GetValue(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE namespace = ? AND key = ?`, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetValue upserts one key of a namespace.
func (s *Store) SetValue(ctx context.Context, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

// RemoveValue deletes one key of a namespace. Removing a missing key is
// not an error.
func (s *Store) RemoveValue(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key)
	return err
}

// Namespace returns the key/value view of one owner's slots.
func (s *Store) Namespace(namespace string) *KV {
	return &KV{store: s, namespace: namespace}
}

// KV is a namespaced key/value store. It satisfies the storage contract of
// the autosave controller and the settings hub.
type KV struct {
	store     *Store
	namespace string
}

func (kv *KV) Get(ctx context.Context, key string) (string, bool, error) {
	return kv.store.GetValue(ctx, kv.namespace, key)
}

func (kv *KV) Set(ctx context.Context, key, value string) error {
	return kv.store.SetValue(ctx, kv.namespace, key, value)
}

func (kv *KV) Remove(ctx context.Context, key string) error {
	return kv.store.RemoveValue(ctx, kv.namespace, key)
}

// SaveArticle inserts a submitted article.
func (s *Store) SaveArticle(ctx context.Context, a Article) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO articles (id, owner, title, content, summary, char_count, status, submitted_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Owner, a.Title, a.Content, a.Summary, a.CharCount, a.Status, a.SubmittedAt.UTC().Format(timeLayout))
	return err
}

const articleColumns = `id, owner, title, content, summary, char_count, status, submitted_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (Article, error) {
	var a Article
	var submitted string
	if err := row.Scan(&a.ID, &a.Owner, &a.Title, &a.Content, &a.Summary, &a.CharCount, &a.Status, &submitted); err != nil {
		return Article{}, err
	}
	a.SubmittedAt, _ = time.Parse(timeLayout, submitted)
	return a, nil
}

// GetArticle returns one article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (Article, error) {
	return scanArticle(s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id))
}

// ListArticles returns a page of articles, newest first, and the total
// number of articles.
func (s *Store) ListArticles(ctx context.Context, limit, offset int) ([]Article, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+articleColumns+` FROM articles ORDER BY submitted_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, a)
	}
	return articles, total, rows.Err()
}

// SaveImage records an uploaded image.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO images (filename, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, img.UploadedAt)
	return err
}

// ImageExists reports whether filename is already recorded.
func (s *Store) ImageExists(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE filename = ?`, filename).Scan(&n)
	return n > 0, err
}

// ListImages returns all image metadata, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &img.UploadedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
