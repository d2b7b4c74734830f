package docstore

import (
	"context"
	"fmt"
	"sync"

	"torque/internal/sentinel"
)

// Memory is an in-process Store. It backs tests and development, and it is
// the reference for the atomicity the hosted store provides: one mutex
// serializes commits, and subscribers observe every committed write.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]Document // collection -> id -> document

	subMu   sync.Mutex
	subs    map[string]map[int]OnChange // collection/id -> subscriber id -> callback
	nextSub int
}

// NewMemory constructs an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]map[string]Document),
		subs: make(map[string]map[int]OnChange),
	}
}

func subKey(collection, id string) string { return collection + "/" + id }

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, sentinel.ErrNotFound)
	}
	return cloneDoc(doc), nil
}

func (m *Memory) Set(_ context.Context, collection, id string, doc Document) error {
	m.mu.Lock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]Document)
	}
	committed := cloneDoc(doc)
	m.data[collection][id] = committed
	m.mu.Unlock()

	m.notify(collection, id, committed)
	return nil
}

func (m *Memory) Update(_ context.Context, collection, id string, patch Patch) error {
	m.mu.Lock()
	doc, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("document %s/%s: %w", collection, id, sentinel.ErrNotFound)
	}
	for field, value := range patch {
		doc[field] = value
	}
	committed := cloneDoc(doc)
	m.mu.Unlock()

	m.notify(collection, id, committed)
	return nil
}

func (m *Memory) Apply(_ context.Context, collection, id string, fn func(Document) (Patch, error)) error {
	m.mu.Lock()
	doc, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("document %s/%s: %w", collection, id, sentinel.ErrNotFound)
	}
	patch, err := fn(cloneDoc(doc))
	if err != nil {
		m.mu.Unlock()
		return err
	}
	for field, value := range patch {
		doc[field] = value
	}
	committed := cloneDoc(doc)
	m.mu.Unlock()

	m.notify(collection, id, committed)
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, pred func(Document) bool) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Document
	for _, doc := range m.data[collection] {
		copied := cloneDoc(doc)
		if pred == nil || pred(copied) {
			out = append(out, copied)
		}
	}
	return out, nil
}

func (m *Memory) Subscribe(ctx context.Context, collection, id string, onChange OnChange) (Subscription, error) {
	key := subKey(collection, id)

	m.subMu.Lock()
	if m.subs[key] == nil {
		m.subs[key] = make(map[int]OnChange)
	}
	subID := m.nextSub
	m.nextSub++
	m.subs[key][subID] = onChange
	m.subMu.Unlock()

	sub := &memorySubscription{store: m, key: key, id: subID}

	// The subscription dies with the owning context so a signed-out client
	// never leaves a dangling callback behind.
	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()

	return sub, nil
}

// notify fans the committed document out to subscribers of the key. Delivery
// is asynchronous so a slow subscriber never blocks a writer.
func (m *Memory) notify(collection, id string, committed Document) {
	key := subKey(collection, id)
	m.subMu.Lock()
	callbacks := make([]OnChange, 0, len(m.subs[key]))
	for _, cb := range m.subs[key] {
		callbacks = append(callbacks, cb)
	}
	m.subMu.Unlock()

	for _, cb := range callbacks {
		go cb(cloneDoc(committed))
	}
}

type memorySubscription struct {
	store *Memory
	key   string
	id    int
	once  sync.Once
}

func (s *memorySubscription) Cancel() {
	s.once.Do(func() {
		s.store.subMu.Lock()
		delete(s.store.subs[s.key], s.id)
		s.store.subMu.Unlock()
	})
}

// cloneDoc copies one level deep plus nested maps/slices, which covers the
// JSON-shaped documents this store holds.
func cloneDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		nested := make(map[string]any, len(val))
		for k, inner := range val {
			nested[k] = cloneValue(inner)
		}
		return nested
	case []any:
		nested := make([]any, len(val))
		for i, inner := range val {
			nested[i] = cloneValue(inner)
		}
		return nested
	default:
		return v
	}
}

var _ Store = (*Memory)(nil)
