package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
)

// lockEntry 單一錢包的鎖，ch 容量為 1，放得進去代表取得鎖
type lockEntry struct {
	ch   chan struct{}
	refs int
}

// keyedLocker 以錢包 ID 為 key 的互斥鎖表
// 不同 ID 的鎖互不影響，沒有人使用的 entry 會被回收
type keyedLocker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{
		entries: make(map[uuid.UUID]*lockEntry),
	}
}

// Lock 取得 id 的鎖，ctx 結束前拿不到則回傳 domain.ErrLockTimeout
func (k *keyedLocker) Lock(ctx context.Context, id uuid.UUID) error {
	k.mu.Lock()
	entry, ok := k.entries[id]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		k.entries[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(id, entry)
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, ctx.Err())
	}
}

// Unlock 釋放 id 的鎖，必須由持有者呼叫
func (k *keyedLocker) Unlock(id uuid.UUID) {
	k.mu.Lock()
	entry, ok := k.entries[id]
	k.mu.Unlock()
	if !ok {
		return
	}
	<-entry.ch
	k.release(id, entry)
}

func (k *keyedLocker) release(id uuid.UUID, entry *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, id)
	}
}
