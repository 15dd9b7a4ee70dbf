package connector

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatch struct {
	sets    int
	creates int
	updates int
	deletes int

	commitErrs []error
	commits    int
	resets     int
}

func (b *fakeBatch) Create(*firestore.DocumentRef, interface{}) { b.creates++ }

func (b *fakeBatch) Set(*firestore.DocumentRef, interface{}) { b.sets++ }

func (b *fakeBatch) Update(*firestore.DocumentRef, []firestore.Update) { b.updates++ }

func (b *fakeBatch) Delete(*firestore.DocumentRef) { b.deletes++ }

func (b *fakeBatch) Commit(context.Context) error {
	b.commits++
	return pop(&b.commitErrs)
}

func (b *fakeBatch) Reset() { b.resets++ }

func TestBatcherRejectsOverflowWrite(t *testing.T) {
	fb := &fakeBatch{}
	b := &Batcher{batch: fb}
	ref := histRef("doc")

	for i := 0; i < MaxWritesPerBatch; i++ {
		require.NoError(t, b.Set(ref, map[string]interface{}{"i": i}))
	}
	assert.Equal(t, MaxWritesPerBatch, b.TotalWrites())

	err := b.Set(ref, map[string]interface{}{"overflow": true})
	assert.ErrorIs(t, err, ErrTooManyWrites)
	assert.Equal(t, MaxWritesPerBatch, fb.sets, "overflow write never reaches the batch")
	assert.Equal(t, MaxWritesPerBatch, b.TotalWrites())
}

func TestBatcherCountsEveryWriteKind(t *testing.T) {
	fb := &fakeBatch{}
	b := &Batcher{batch: fb}
	ref := histRef("doc")

	require.NoError(t, b.Set(ref, nil))
	require.NoError(t, b.Create(ref, nil))
	require.NoError(t, b.Update(ref, []firestore.Update{{Path: "f", Value: 1}}))
	require.NoError(t, b.Delete(ref))

	assert.Equal(t, 4, b.TotalWrites())
	assert.Equal(t, 1, fb.sets)
	assert.Equal(t, 1, fb.creates)
	assert.Equal(t, 1, fb.updates)
	assert.Equal(t, 1, fb.deletes)
}

func TestBatcherCommitRetriesOnceThenSucceeds(t *testing.T) {
	fb := &fakeBatch{commitErrs: []error{errors.New("transient")}}
	b := &Batcher{batch: fb}
	ref := histRef("doc")
	require.NoError(t, b.Set(ref, nil))

	st := b.Commit(context.Background())
	assert.Equal(t, StatusSuccess, st)
	assert.Equal(t, 2, fb.commits)
	assert.Equal(t, 1, fb.resets, "fresh batch after a successful commit")
	assert.Equal(t, 0, b.TotalWrites(), "counter resets on success")

	// Reusable after commit.
	require.NoError(t, b.Set(ref, nil))
	assert.Equal(t, 1, b.TotalWrites())
}

func TestBatcherCommitFailsAfterRetry(t *testing.T) {
	remote := errors.New("permanent")
	fb := &fakeBatch{commitErrs: []error{remote, remote}}
	b := &Batcher{batch: fb}
	ref := histRef("doc")
	require.NoError(t, b.Set(ref, nil))

	st := b.Commit(context.Background())
	assert.Equal(t, StatusError, st)
	assert.Equal(t, 2, fb.commits, "exactly one retry")
	assert.Equal(t, 0, fb.resets)
	assert.Equal(t, 1, b.TotalWrites(), "counter untouched on failure")
}
