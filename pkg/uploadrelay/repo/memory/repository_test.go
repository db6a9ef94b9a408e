package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
)

func newRecord(key, customID string, size int64) *uploadrelay.FileRecord {
	now := time.Now().UTC()
	return &uploadrelay.FileRecord{
		Key:       key,
		CustomID:  customID,
		Name:      key + ".txt",
		Size:      size,
		Status:    uploadrelay.FileStatusUploading,
		ACL:       uploadrelay.ACLPrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateIfAbsentFirstWins(t *testing.T) {
	repo := New()
	ctx := context.Background()

	stored, created, err := repo.CreateIfAbsent(ctx, newRecord("k1", "", 10))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "k1.txt", stored.Name)

	loser := newRecord("k1", "", 99)
	loser.Name = "other.txt"
	existing, created, err := repo.CreateIfAbsent(ctx, loser)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "k1.txt", existing.Name)
	assert.Equal(t, int64(10), existing.Size)
}

func TestCopyOnReturn(t *testing.T) {
	repo := New()
	ctx := context.Background()

	_, _, err := repo.CreateIfAbsent(ctx, newRecord("k1", "", 10))
	require.NoError(t, err)

	first, err := repo.FindByIdentifier(ctx, "k1")
	require.NoError(t, err)
	first.Name = "mutated.txt"

	// Mutating a returned record must not leak into the store
	second, err := repo.FindByIdentifier(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1.txt", second.Name)
}

func TestFindByIdentifier(t *testing.T) {
	repo := New()
	ctx := context.Background()

	_, _, err := repo.CreateIfAbsent(ctx, newRecord("k1", "doc-1", 10))
	require.NoError(t, err)

	byKey, err := repo.FindByIdentifier(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1", byKey.Key)

	byCustom, err := repo.FindByIdentifier(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "k1", byCustom.Key)

	_, err = repo.FindByIdentifier(ctx, "ghost")
	assert.ErrorIs(t, err, uploadrelay.ErrFileNotFound)
}

func TestUpdate(t *testing.T) {
	repo := New()
	ctx := context.Background()

	_, _, err := repo.CreateIfAbsent(ctx, newRecord("k1", "doc-1", 10))
	require.NoError(t, err)

	record, err := repo.FindByIdentifier(ctx, "k1")
	require.NoError(t, err)
	record.Status = uploadrelay.FileStatusUploaded
	record.CustomID = "doc-2"

	updated, err := repo.Update(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, uploadrelay.FileStatusUploaded, updated.Status)

	// The custom ID index follows the update
	_, err = repo.FindByIdentifier(ctx, "doc-1")
	assert.ErrorIs(t, err, uploadrelay.ErrFileNotFound)
	byNew, err := repo.FindByIdentifier(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, "k1", byNew.Key)

	_, err = repo.Update(ctx, newRecord("ghost", "", 1))
	assert.ErrorIs(t, err, uploadrelay.ErrFileNotFound)
}

func TestListOrderingAndPaging(t *testing.T) {
	repo := New()
	ctx := context.Background()

	base := time.Now().UTC()
	for i, key := range []string{"k1", "k2", "k3"} {
		record := newRecord(key, "", int64(i))
		record.CreatedAt = base.Add(time.Duration(i) * time.Second)
		_, _, err := repo.CreateIfAbsent(ctx, record)
		require.NoError(t, err)
	}

	all, total, err := repo.List(ctx, uploadrelay.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "k3", all[0].Key)
	assert.Equal(t, "k1", all[2].Key)

	page, total, err := repo.List(ctx, uploadrelay.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "k2", page[0].Key)

	empty, total, err := repo.List(ctx, uploadrelay.ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, empty)
}

func TestListEqualTimestampsUseInsertionOrder(t *testing.T) {
	repo := New()
	ctx := context.Background()

	now := time.Now().UTC()
	for _, key := range []string{"k1", "k2", "k3"} {
		record := newRecord(key, "", 1)
		record.CreatedAt = now
		_, _, err := repo.CreateIfAbsent(ctx, record)
		require.NoError(t, err)
	}

	all, _, err := repo.List(ctx, uploadrelay.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "k3", all[0].Key)
	assert.Equal(t, "k1", all[2].Key)
}

func TestListStatusFilter(t *testing.T) {
	repo := New()
	ctx := context.Background()

	uploading := newRecord("k1", "", 1)
	uploaded := newRecord("k2", "", 2)
	uploaded.Status = uploadrelay.FileStatusUploaded
	for _, record := range []*uploadrelay.FileRecord{uploading, uploaded} {
		_, _, err := repo.CreateIfAbsent(ctx, record)
		require.NoError(t, err)
	}

	records, total, err := repo.List(ctx, uploadrelay.ListFilter{
		Statuses: []uploadrelay.FileStatus{uploadrelay.FileStatusUploaded},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, "k2", records[0].Key)
}

func TestDeleteByKeys(t *testing.T) {
	repo := New()
	ctx := context.Background()

	_, _, err := repo.CreateIfAbsent(ctx, newRecord("k1", "doc-1", 1))
	require.NoError(t, err)
	_, _, err = repo.CreateIfAbsent(ctx, newRecord("k2", "", 1))
	require.NoError(t, err)

	removed, err := repo.DeleteByKeys(ctx, "k1", "k2", "ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = repo.FindByIdentifier(ctx, "k1")
	assert.ErrorIs(t, err, uploadrelay.ErrFileNotFound)
	_, err = repo.FindByIdentifier(ctx, "doc-1")
	assert.ErrorIs(t, err, uploadrelay.ErrFileNotFound)
}

func TestSumSize(t *testing.T) {
	repo := New()
	ctx := context.Background()

	uploading := newRecord("k1", "", 100)
	uploaded := newRecord("k2", "", 250)
	uploaded.Status = uploadrelay.FileStatusUploaded
	for _, record := range []*uploadrelay.FileRecord{uploading, uploaded} {
		_, _, err := repo.CreateIfAbsent(ctx, record)
		require.NoError(t, err)
	}

	sum, err := repo.SumSize(ctx, uploadrelay.FileStatusUploaded)
	require.NoError(t, err)
	assert.Equal(t, int64(250), sum)

	all, err := repo.SumSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(350), all)
}
