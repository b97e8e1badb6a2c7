package backup_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockroom/internal/backup"
	"stockroom/internal/blob"
	"stockroom/internal/core"
	"stockroom/internal/infra/persistence/memory"
	"stockroom/pkg/domain"
)

var fixedNow = time.Date(2024, 5, 2, 14, 30, 0, 0, time.UTC)

func fixedClock() core.Clock { return core.ClockFunc(func() time.Time { return fixedNow }) }

// seeded returns a table store holding one item and its audit entry.
func seeded(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	reg, err := core.Open(context.Background(), store, core.WithClock(fixedClock()))
	require.NoError(t, err)
	_, err = reg.Items().Add(context.Background(), domain.Item{ItemName: "Milk, whole", SupplierID: "S1", StockQuantity: 5, PricePerUnit: decimal.RequireFromString("1.20")})
	require.NoError(t, err)
	return store
}

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, blobs := range map[string]blob.Store{"memory": blob.NewMemory(), "s3": blob.NewS3Mock()} {
		t.Run(name, func(t *testing.T) {
			source := seeded(t)
			snap, err := backup.New(source, blobs, backup.WithClock(fixedClock())).Export(ctx)
			require.NoError(t, err)
			require.Regexp(t, regexp.MustCompile(`^20240502T143000Z-[0-9a-f-]{36}$`), snap.ID)
			require.Len(t, snap.Kinds, len(domain.Kinds()))
			require.True(t, snap.CreatedAt.Equal(fixedNow))

			target := memory.NewStore()
			exporter := backup.New(target, blobs)
			require.NoError(t, exporter.Restore(ctx, snap.ID))

			reg, err := core.Open(ctx, target)
			require.NoError(t, err)
			items, err := reg.Items().List(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1)
			require.Equal(t, "Milk, whole", items[0].ItemName)
			logs, err := reg.Logs().List(ctx)
			require.NoError(t, err)
			require.Len(t, logs, 1)

			listed, err := exporter.List(ctx)
			require.NoError(t, err)
			require.Len(t, listed, 1)
			require.Equal(t, snap.ID, listed[0].ID)
			require.True(t, listed[0].CreatedAt.Equal(fixedNow))
			require.ElementsMatch(t, domain.Kinds(), listed[0].Kinds)
		})
	}
}

func TestListOrdersSnapshots(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	source := seeded(t)
	first, err := backup.New(source, blobs, backup.WithClock(fixedClock())).Export(ctx)
	require.NoError(t, err)
	later := core.ClockFunc(func() time.Time { return fixedNow.Add(time.Hour) })
	second, err := backup.New(source, blobs, backup.WithClock(later)).Export(ctx)
	require.NoError(t, err)
	_, err = blobs.Put(ctx, "unrelated/object.txt", strings.NewReader("x"), blob.PutOptions{})
	require.NoError(t, err)

	listed, err := backup.New(source, blobs).List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, first.ID, listed[0].ID)
	require.Equal(t, second.ID, listed[1].ID)
}

func TestRestoreRejectsCorruptSnapshotWithoutWriting(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	snap, err := backup.New(seeded(t), blobs, backup.WithClock(fixedClock())).Export(ctx)
	require.NoError(t, err)

	// Replace the items object with a row that cannot be decoded.
	key := "snapshots/" + snap.ID + "/" + string(domain.KindItem) + ".txt"
	_, err = blobs.Delete(ctx, key)
	require.NoError(t, err)
	_, err = blobs.Put(ctx, key, strings.NewReader("ITEM001,Milk,S1,many,1.20\n"), blob.PutOptions{})
	require.NoError(t, err)

	target := memory.NewStore()
	require.NoError(t, target.Save(ctx, domain.KindUser, []string{"keep"}))
	err = backup.New(target, blobs).Restore(ctx, snap.ID)
	require.ErrorIs(t, err, domain.ErrCorruptRecord)

	users, err := target.Load(ctx, domain.KindUser)
	require.NoError(t, err)
	require.Equal(t, []string{"keep"}, users)
	items, err := target.Load(ctx, domain.KindItem)
	require.NoError(t, err)
	require.Nil(t, items)
}

func TestRestoreRejectsDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	source := memory.NewStore()
	require.NoError(t, source.Save(ctx, domain.KindItem, []string{
		"ITEM001,Milk,S1,5,1.20",
		"ITEM001,Bread,S2,3,2.50",
	}))
	blobs := blob.NewMemory()
	snap, err := backup.New(source, blobs).Export(ctx)
	require.NoError(t, err)

	target := memory.NewStore()
	err = backup.New(target, blobs, backup.WithLogger(nil)).Restore(ctx, snap.ID)
	require.ErrorIs(t, err, domain.ErrCorruptRecord)
	require.ErrorContains(t, err, "duplicate key ITEM001")

	items, err := target.Load(ctx, domain.KindItem)
	require.NoError(t, err)
	require.Nil(t, items)
	_, err = core.Open(ctx, target)
	require.NoError(t, err, "a rejected restore leaves the target loadable")
}

func TestRestoreIncompleteSnapshot(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	snap, err := backup.New(seeded(t), blobs).Export(ctx)
	require.NoError(t, err)
	_, err = blobs.Delete(ctx, "snapshots/"+snap.ID+"/"+string(domain.KindStock)+".txt")
	require.NoError(t, err)

	err = backup.New(memory.NewStore(), blobs).Restore(ctx, snap.ID)
	require.ErrorIs(t, err, domain.ErrCorruptRecord)
}

func TestRestoreUnknownOrMalformedID(t *testing.T) {
	ctx := context.Background()
	exporter := backup.New(memory.NewStore(), blob.NewMemory())
	require.ErrorIs(t, exporter.Restore(ctx, "20240101T000000Z-missing"), domain.ErrNotFound)
	for _, id := range []string{"", "../etc", "a/b", ".hidden"} {
		err := exporter.Restore(ctx, id)
		require.True(t, errors.Is(err, domain.ErrInvalidInput), "id %q: %v", id, err)
	}
}
