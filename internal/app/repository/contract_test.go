package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/testutil"
)

// Every backend must behave the same way for the operations the dispatcher
// and the HTTP services rely on.
func TestRecordStoreContract(t *testing.T) {
	for _, kind := range testutil.StoreKinds() {
		t.Run(string(kind), func(t *testing.T) {
			ctx := context.Background()
			store := testutil.SetupRecordStore(t, kind)

			created, err := store.Create(ctx, testutil.SampleRecord("job-1"))
			require.NoError(t, err)
			assert.Equal(t, int64(1), created.Version)
			assert.Equal(t, model.StatusUploaded, created.Status)

			_, err = store.Create(ctx, testutil.SampleRecord("job-1"))
			assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)

			updated, err := store.Update(ctx, "job-1", func(r *model.JobRecord) error {
				r.Status = model.StatusDiarizing
				r.Stage = model.StageDiarization
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, int64(2), updated.Version)

			stale := created
			stale.Status = model.StatusFailed
			_, err = store.CompareAndSwap(ctx, stale)
			assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)

			found, err := store.FindByID(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, model.StatusDiarizing, found.Status)
			assert.Equal(t, model.StageDiarization, found.Stage)

			require.NoError(t, store.Delete(ctx, "job-1"))
			_, err = store.FindByID(ctx, "job-1")
			assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
			assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(store.Delete(ctx, "job-1")))
		})
	}
}
