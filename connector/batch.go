package connector

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
)

// MaxWritesPerBatch is the ceiling Firestore imposes on a single
// batched write request.
const MaxWritesPerBatch = 500

// ErrTooManyWrites is returned when a write would push the batch past
// MaxWritesPerBatch. The write is rejected before it is queued.
var ErrTooManyWrites = fmt.Errorf("connector: maximum %d writes allowed per batch", MaxWritesPerBatch)

// batchWriter is the provider batch behind the Batcher. Faked in tests.
type batchWriter interface {
	Create(ref *firestore.DocumentRef, data interface{})
	Set(ref *firestore.DocumentRef, data interface{})
	Update(ref *firestore.DocumentRef, updates []firestore.Update)
	Delete(ref *firestore.DocumentRef)
	Commit(ctx context.Context) error
	Reset()
}

type fsWriteBatch struct {
	client *firestore.Client
	batch  *firestore.WriteBatch
}

func (w *fsWriteBatch) Create(ref *firestore.DocumentRef, data interface{}) {
	w.batch.Create(ref, data)
}

func (w *fsWriteBatch) Set(ref *firestore.DocumentRef, data interface{}) {
	// Merge, never override: same contract as the single-document Set.
	w.batch.Set(ref, data, firestore.MergeAll)
}

func (w *fsWriteBatch) Update(ref *firestore.DocumentRef, updates []firestore.Update) {
	w.batch.Update(ref, updates)
}

func (w *fsWriteBatch) Delete(ref *firestore.DocumentRef) {
	w.batch.Delete(ref)
}

func (w *fsWriteBatch) Commit(ctx context.Context) error {
	_, err := w.batch.Commit(ctx)
	return err
}

func (w *fsWriteBatch) Reset() {
	w.batch = w.client.Batch()
}

// Batcher accumulates write operations and submits them in one batch.
// It counts writes against MaxWritesPerBatch and rejects the overflow
// before anything is sent. Owned by a single goroutine; not safe for
// concurrent use.
type Batcher struct {
	batch  batchWriter
	writes int
}

// NewBatcher returns a Batcher over a fresh write batch of client.
func NewBatcher(client *firestore.Client) *Batcher {
	return &Batcher{batch: &fsWriteBatch{client: client, batch: client.Batch()}}
}

// TotalWrites is the number of writes accumulated in the current batch.
func (b *Batcher) TotalWrites() int { return b.writes }

func (b *Batcher) countWrite() error {
	if b.writes >= MaxWritesPerBatch {
		return ErrTooManyWrites
	}
	b.writes++
	return nil
}

// Set queues a merge-set: the document is created if absent and merged
// if present, never overwritten.
func (b *Batcher) Set(ref *firestore.DocumentRef, data interface{}) error {
	if err := b.countWrite(); err != nil {
		return err
	}
	b.batch.Set(ref, data)
	return nil
}

// Create queues a create that fails on commit if the document exists.
func (b *Batcher) Create(ref *firestore.DocumentRef, data interface{}) error {
	if err := b.countWrite(); err != nil {
		return err
	}
	b.batch.Create(ref, data)
	return nil
}

// Update queues field updates for an existing document.
func (b *Batcher) Update(ref *firestore.DocumentRef, updates []firestore.Update) error {
	if err := b.countWrite(); err != nil {
		return err
	}
	b.batch.Update(ref, updates)
	return nil
}

// Delete queues a document deletion.
func (b *Batcher) Delete(ref *firestore.DocumentRef) error {
	if err := b.countWrite(); err != nil {
		return err
	}
	b.batch.Delete(ref)
	return nil
}

// Commit submits the accumulated writes, retrying exactly once on
// failure. A successful commit resets the counter and the underlying
// batch so the Batcher can be reused.
func (b *Batcher) Commit(ctx context.Context) Status {
	err := b.batch.Commit(ctx)
	if err != nil {
		logger.Error("batch commit failed",
			zap.Int("writes", b.writes),
			zap.Bool("retrying", true),
			zap.Error(err),
		)
		if err = b.batch.Commit(ctx); err != nil {
			logger.Error("batch commit failed",
				zap.Int("writes", b.writes),
				zap.Bool("retried", true),
				zap.Error(err),
			)
			batchCommits.WithLabelValues("error").Inc()
			return StatusError
		}
	}

	b.writes = 0
	b.batch.Reset()
	batchCommits.WithLabelValues("success").Inc()
	return StatusSuccess
}
