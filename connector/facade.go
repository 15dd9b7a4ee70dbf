package connector

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Document is the subset of *firestore.DocumentRef the façade needs.
// Kept narrow so the retry behavior is testable without a live client.
type Document interface {
	Get(ctx context.Context) (*firestore.DocumentSnapshot, error)
	Set(ctx context.Context, data interface{}, opts ...firestore.SetOption) (*firestore.WriteResult, error)
	Update(ctx context.Context, updates []firestore.Update, preconds ...firestore.Precondition) (*firestore.WriteResult, error)
}

var _ Document = (*firestore.DocumentRef)(nil)

// Query is anything that can produce a document iterator: a
// firestore.Query or a *firestore.CollectionRef.
type Query interface {
	Documents(ctx context.Context) *firestore.DocumentIterator
}

var (
	_ Query = firestore.Query{}
	_ Query = (*firestore.CollectionRef)(nil)
)

// Get retrieves a document. A missing document is not an error: the
// snapshot is returned as-is (Exists() == false) with StatusSuccess.
func Get(ctx context.Context, doc Document) (*firestore.DocumentSnapshot, Status) {
	var snap *firestore.DocumentSnapshot
	st := withRetry(opGet, refPath(doc), func() error {
		s, err := doc.Get(ctx)
		if status.Code(err) == codes.NotFound {
			snap = s
			return nil
		}
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	if !st.OK() {
		return nil, StatusError
	}
	return snap, StatusSuccess
}

// Set creates the document or merges data into it when it already
// exists. It never overwrites fields absent from data.
func Set(ctx context.Context, doc Document, data map[string]interface{}) Status {
	return withRetry(opSet, refPath(doc), func() error {
		_, err := doc.Set(ctx, data, firestore.MergeAll)
		return err
	})
}

// Update applies field updates to an existing document.
func Update(ctx context.Context, doc Document, updates []firestore.Update) Status {
	return withRetry(opUpdate, refPath(doc), func() error {
		_, err := doc.Update(ctx, updates)
		return err
	})
}

// Stream drains a collection or query into a slice of snapshots.
// The iterator is consumed inside the retried attempt so that errors
// surfacing mid-stream still get the single retry.
func Stream(ctx context.Context, q Query) ([]*firestore.DocumentSnapshot, Status) {
	var docs []*firestore.DocumentSnapshot
	st := withRetry(opStream, queryPath(q), func() error {
		it := q.Documents(ctx)
		defer it.Stop()
		all, err := it.GetAll()
		if err != nil {
			return err
		}
		docs = all
		return nil
	})
	if !st.OK() {
		return nil, StatusError
	}
	return docs, StatusSuccess
}

// CollectionExists reports whether the collection holds at least one
// document. It peeks a single document rather than counting.
func CollectionExists(ctx context.Context, col *firestore.CollectionRef) (bool, Status) {
	docs, st := Stream(ctx, col.Limit(1))
	if !st.OK() {
		return false, StatusError
	}
	return len(docs) > 0, StatusSuccess
}

func refPath(doc Document) string {
	if ref, ok := doc.(*firestore.DocumentRef); ok {
		return ref.Path
	}
	return fmt.Sprintf("%T", doc)
}

func queryPath(q Query) string {
	if col, ok := q.(*firestore.CollectionRef); ok {
		return col.Path
	}
	return fmt.Sprintf("%T", q)
}
