package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mohammad-safakhou/documind/internal/answer"
)

type Store struct {
	DB *sql.DB
}

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2) RETURNING id`, email, hash).Scan(&id)
	return id, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	return
}

// Document operations

// InsertDocument stores doc, assigning an id when it has none. NUL bytes,
// which Postgres text columns reject, are dropped; the returned document is
// what was stored.
func (s *Store) InsertDocument(ctx context.Context, doc answer.Document) (answer.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc = stripNUL(doc)
	segments, err := json.Marshal(nonNilSegments(doc.Segments))
	if err != nil {
		return answer.Document{}, fmt.Errorf("encode segments: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO documents (id, filename, kind, text, segments, uploaded_by)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''))`,
		doc.ID, doc.Filename, string(doc.Kind), doc.Text, segments, doc.UploadedBy)
	if err != nil {
		return answer.Document{}, err
	}
	return doc, nil
}

// LatestDocument returns the most recently stored document, or (nil, nil).
func (s *Store) LatestDocument(ctx context.Context) (*answer.Document, error) {
	var (
		doc      answer.Document
		kind     string
		segments []byte
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT id, filename, kind, text, segments, COALESCE(uploaded_by,'')
FROM documents
ORDER BY created_at DESC
LIMIT 1`).Scan(&doc.ID, &doc.Filename, &kind, &doc.Text, &segments, &doc.UploadedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc.Kind = answer.ParseKind(kind)
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &doc.Segments); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
	}
	return &doc, nil
}

func stripNUL(doc answer.Document) answer.Document {
	doc = doc.Clone()
	doc.Filename = strings.ReplaceAll(doc.Filename, "\x00", "")
	doc.Text = strings.ReplaceAll(doc.Text, "\x00", "")
	for i := range doc.Segments {
		doc.Segments[i].Text = strings.ReplaceAll(doc.Segments[i].Text, "\x00", "")
	}
	return doc
}

func nonNilSegments(s []answer.Segment) []answer.Segment {
	if s == nil {
		return []answer.Segment{}
	}
	return s
}

// Documents exposes the store as a document repository.
func (s *Store) Documents() DocumentRepository { return DocumentRepository{s} }

// DocumentRepository adapts Store to the Save/Latest repository shape.
type DocumentRepository struct{ s *Store }

func (r DocumentRepository) Save(ctx context.Context, doc answer.Document) (answer.Document, error) {
	return r.s.InsertDocument(ctx, doc)
}

func (r DocumentRepository) Latest(ctx context.Context) (*answer.Document, error) {
	return r.s.LatestDocument(ctx)
}
