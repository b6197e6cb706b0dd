// Package documents keeps the most recently uploaded document that chat
// questions are answered against.
package documents

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/documind/internal/answer"
)

// Repository stores uploaded documents and returns the latest one.
// Latest returns (nil, nil) when nothing has been uploaded.
type Repository interface {
	Save(ctx context.Context, doc answer.Document) (answer.Document, error)
	Latest(ctx context.Context) (*answer.Document, error)
}

// Memory is a single-slot repository: each Save replaces the previous
// document for every caller.
type Memory struct {
	mu  sync.RWMutex
	doc *answer.Document
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Save(_ context.Context, doc answer.Document) (answer.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	snapshot := doc.Clone()
	m.mu.Lock()
	m.doc = &snapshot
	m.mu.Unlock()
	return doc, nil
}

func (m *Memory) Latest(context.Context) (*answer.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil, nil
	}
	out := m.doc.Clone()
	return &out, nil
}

// Chain persists to Primary and mirrors every write into Fallback. Reads
// prefer Primary and use Fallback when Primary is empty or failing.
type Chain struct {
	Primary  Repository
	Fallback Repository
	Logger   *log.Logger
}

func (c *Chain) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c *Chain) Save(ctx context.Context, doc answer.Document) (answer.Document, error) {
	saved, err := c.Primary.Save(ctx, doc)
	if err != nil {
		return answer.Document{}, err
	}
	if _, err := c.Fallback.Save(ctx, saved); err != nil {
		c.logger().Printf("document cache write failed: %v", err)
	}
	return saved, nil
}

func (c *Chain) Latest(ctx context.Context) (*answer.Document, error) {
	doc, err := c.Primary.Latest(ctx)
	if err == nil && doc != nil {
		return doc, nil
	}
	if err != nil {
		c.logger().Printf("latest document lookup failed, using cached copy: %v", err)
	}
	return c.Fallback.Latest(ctx)
}
