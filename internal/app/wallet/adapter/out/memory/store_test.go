package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
	"github.com/JoeShih716/go-wallet-ledger/pkg/wal"
)

func seeded(id uuid.UUID, balance string) map[uuid.UUID]*domain.Wallet {
	return map[uuid.UUID]*domain.Wallet{
		id: domain.RestoreWallet(id, decimal.RequireFromString(balance)),
	}
}

func TestStore_NoDirtyReads(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	store, err := NewStore(seeded(id, "10.00"), nil)
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx usecase.Tx) error {
		w, err := tx.LockedGet(ctx, id)
		require.NoError(t, err)
		w.Balance = decimal.RequireFromString("99.00")
		require.NoError(t, tx.Save(ctx, w))

		// 交易內看得到自己寫的值
		again, err := tx.LockedGet(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "99.00", domain.FormatBalance(again.Balance))

		// 交易外只看得到已 commit 的值
		outside, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "10.00", domain.FormatBalance(outside.Balance))
		return nil
	})
	require.NoError(t, err)

	committed, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "99.00", domain.FormatBalance(committed.Balance))
}

func TestStore_RollbackDiscardsAndReleasesLock(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	store, err := NewStore(seeded(id, "10.00"), nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(tx usecase.Tx) error {
		w, err := tx.LockedGet(ctx, id)
		require.NoError(t, err)
		w.Balance = decimal.Zero
		require.NoError(t, tx.Save(ctx, w))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "10.00", domain.FormatBalance(w.Balance))

	// 鎖已釋放，可以立刻再取得
	lockCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	err = store.WithinTx(lockCtx, func(tx usecase.Tx) error {
		_, err := tx.LockedGet(lockCtx, id)
		return err
	})
	assert.NoError(t, err)
}

func TestStore_LockedGetNotFoundReleasesLock(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(nil, nil)
	require.NoError(t, err)
	missing := uuid.New()

	err = store.WithinTx(ctx, func(tx usecase.Tx) error {
		_, err := tx.LockedGet(ctx, missing)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assert.Empty(t, store.locks.entries)
}

func TestStore_SaveWithoutLock(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	store, err := NewStore(seeded(id, "1"), nil)
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx usecase.Tx) error {
		return tx.Save(ctx, domain.RestoreWallet(id, decimal.NewFromInt(2)))
	})
	assert.ErrorIs(t, err, errNotLocked)
}

func TestStore_LockTimeout(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	store, err := NewStore(seeded(id, "1"), nil)
	require.NoError(t, err)

	require.NoError(t, store.locks.Lock(ctx, id))
	defer store.locks.Unlock(id)

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err = store.WithinTx(timeoutCtx, func(tx usecase.Tx) error {
		_, err := tx.LockedGet(timeoutCtx, id)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_CreateAndLoadAll(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(nil, nil)
	require.NoError(t, err)

	w := domain.NewWallet()
	require.NoError(t, store.Create(ctx, w))
	assert.ErrorIs(t, store.Create(ctx, w), domain.ErrWalletAlreadyExists)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[w.ID].Balance.IsZero())
}

func TestStore_RecoverFromWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wal.log")
	seededID := uuid.New()

	w1, err := wal.NewWAL(path)
	require.NoError(t, err)
	store, err := NewStore(seeded(seededID, "100.00"), w1)
	require.NoError(t, err)

	created := domain.NewWallet()
	require.NoError(t, store.Create(ctx, created))
	for _, id := range []uuid.UUID{seededID, created.ID} {
		err := store.WithinTx(ctx, func(tx usecase.Tx) error {
			w, err := tx.LockedGet(ctx, id)
			if err != nil {
				return err
			}
			w.Balance = w.Balance.Add(decimal.RequireFromString("25.50"))
			return tx.Save(ctx, w)
		})
		require.NoError(t, err)
	}
	require.NoError(t, w1.Close())

	// 以相同的種子重新啟動，WAL 重放後的餘額覆蓋種子
	w2, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer w2.Close()
	restored, err := NewStore(seeded(seededID, "100.00"), w2)
	require.NoError(t, err)

	got, err := restored.Get(ctx, seededID)
	require.NoError(t, err)
	assert.Equal(t, "125.50", domain.FormatBalance(got.Balance))

	got, err = restored.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.50", domain.FormatBalance(got.Balance))
}

func TestStore_RecoverFromWALWithTornTail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wal.log")
	id := uuid.New()

	w1, err := wal.NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w1.Write(walRecord{WalletID: id, Balance: decimal.RequireFromString("40.00")}))
	require.NoError(t, w1.Close())

	// 第二筆只寫了一半就 crash
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, wal.FileModeReadOnly)
	require.NoError(t, err)
	_, err = f.WriteString(`{"wallet_id":"` + id.String() + `","bal`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w2, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer w2.Close()
	store, err := NewStore(nil, w2)
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "40.00", domain.FormatBalance(got.Balance))

	// 恢復後的寫入接在最後一筆完整記錄之後
	err = store.WithinTx(ctx, func(tx usecase.Tx) error {
		w, err := tx.LockedGet(ctx, id)
		if err != nil {
			return err
		}
		w.Balance = w.Balance.Add(decimal.RequireFromString("2.00"))
		return tx.Save(ctx, w)
	})
	require.NoError(t, err)

	restored, err := NewStore(nil, w2)
	require.NoError(t, err)
	got, err = restored.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "42.00", domain.FormatBalance(got.Balance))
}

func TestKeyedLocker_IndependentKeys(t *testing.T) {
	ctx := context.Background()
	locker := newKeyedLocker()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, locker.Lock(ctx, a))
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.NoError(t, locker.Lock(shortCtx, b))

	locker.Unlock(a)
	locker.Unlock(b)
	assert.Empty(t, locker.entries)
}

func TestKeyedLocker_WaiterAcquiresAfterUnlock(t *testing.T) {
	ctx := context.Background()
	locker := newKeyedLocker()
	id := uuid.New()

	require.NoError(t, locker.Lock(ctx, id))
	acquired := make(chan struct{})
	go func() {
		if err := locker.Lock(ctx, id); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired while held")
	case <-time.After(30 * time.Millisecond):
	}

	locker.Unlock(id)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
	locker.Unlock(id)
	assert.Empty(t, locker.entries)
}
