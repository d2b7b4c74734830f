// Package docstore abstracts the hosted keyed document service the workflow
// core persists to. The contract mirrors what the real store guarantees:
// per-document atomic writes, targeted field patches rather than whole-document
// overwrites, and at-least-once delivery of subscription events that are
// eventually consistent with the last committed write.
package docstore

import (
	"context"
	"encoding/json"

	dErrors "torque/pkg/domain-errors"
)

// Document is one stored document, keyed by field name.
type Document map[string]any

// Patch is a targeted set of field updates. Fields absent from the patch are
// left untouched, so concurrent unrelated edits are never clobbered.
type Patch map[string]any

// OnChange receives the committed document after every write to the
// subscribed key. Delivery is at-least-once and asynchronous.
type OnChange func(Document)

// Subscription is a caller-owned handle on a live subscription. Cancel is
// idempotent; after it returns no further callbacks are delivered.
type Subscription interface {
	Cancel()
}

// Store is the document store collaborator contract.
//
// Error contract: Get, Update, and Apply return sentinel.ErrNotFound (wrapped)
// when the document does not exist; infrastructure failures come back wrapped
// with context.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, patch Patch) error

	// Apply runs an atomic read-modify-write: fn sees the current document and
	// returns the patch to commit, or an error to abort with nothing written.
	// The store serializes Apply calls per document, which is what lets two
	// concurrent closers of the same approval request observe a strict order.
	Apply(ctx context.Context, collection, id string, fn func(Document) (Patch, error)) error

	Query(ctx context.Context, collection string, pred func(Document) bool) ([]Document, error)

	// Subscribe registers onChange for every subsequent commit to the key.
	// The subscription dies with ctx or with an explicit Cancel, whichever
	// comes first; a dangling handle never outlives its owner's context.
	Subscribe(ctx context.Context, collection, id string, onChange OnChange) (Subscription, error)
}

// ToDocument converts a typed value into a Document via its JSON form.
func ToDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not encode document")
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not decode document")
	}
	return doc, nil
}

// FromDocument decodes a Document into the typed value pointed to by v.
func FromDocument(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode document")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not decode document")
	}
	return nil
}
