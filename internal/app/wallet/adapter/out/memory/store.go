package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
	"github.com/JoeShih716/go-wallet-ledger/pkg/wal"
)

var errNotLocked = errors.New("memory: save without holding the wallet lock")

// walRecord WAL 中的一筆記錄: 某個錢包 commit 後的餘額
type walRecord struct {
	WalletID uuid.UUID       `json:"wallet_id"`
	Balance  decimal.Decimal `json:"balance"`
}

// Store 是一個使用 Mutex 實現的錢包存放區
//
// 結構:
//
//	wallets: 已 commit 的餘額
//	mu: 保護 wallets (讀寫鎖，讀取不等待錢包鎖)
//	locks: 每個錢包一把鎖，對應資料庫的 SELECT ... FOR UPDATE
//	wal: Write-Ahead Log 實例 (可為 nil)
type Store struct {
	wallets map[uuid.UUID]decimal.Decimal
	mu      sync.RWMutex
	locks   *keyedLocker
	// Write-Ahead Logging
	wal *wal.WAL
}

// NewStore 建立一個新的 Store 實例
//
// 參數:
//
//	wallets: 初始錢包資料 (可為 nil)
//	w: Write-Ahead Log 實例 (可為 nil)
//
// 回傳:
//
//	*Store: Store 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewStore(wallets map[uuid.UUID]*domain.Wallet, w *wal.WAL) (*Store, error) {
	store := &Store{
		wallets: make(map[uuid.UUID]decimal.Decimal, len(wallets)),
		locks:   newKeyedLocker(),
		wal:     w,
	}
	for id, wallet := range wallets {
		store.wallets[id] = wallet.Balance
	}
	if w != nil {
		if err := store.recoverFromWAL(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// recoverFromWAL 從 WAL 檔案恢復錢包狀態
// 每筆記錄都是完整餘額，重放時後寫者覆蓋前者
// 只有 NewStore 呼叫，無需 Lock (單執行緒)
func (s *Store) recoverFromWAL() error {
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(jsonRaw, &rec); err != nil {
			return fmt.Errorf("decode wal record: %w", err)
		}
		s.wallets[rec.WalletID] = rec.Balance
		return nil
	})
}

// WithinTx 在交易內執行 fn，成功時先寫 WAL 再發佈新餘額，最後釋放錢包鎖
func (s *Store) WithinTx(ctx context.Context, fn func(tx usecase.Tx) error) error {
	tx := &memTx{
		store:  s,
		held:   make(map[uuid.UUID]struct{}, 1),
		staged: make(map[uuid.UUID]decimal.Decimal, 1),
	}
	defer tx.releaseAll()

	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx.staged)
}

func (s *Store) commit(staged map[uuid.UUID]decimal.Decimal) error {
	if len(staged) == 0 {
		return nil
	}
	if err := s.appendWAL(staged); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, balance := range staged {
		s.wallets[id] = balance
	}
	return nil
}

func (s *Store) appendWAL(balances map[uuid.UUID]decimal.Decimal) error {
	if s.wal == nil {
		return nil
	}
	for id, balance := range balances {
		if err := s.wal.Write(walRecord{WalletID: id, Balance: balance}); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrWALWriteFailed, err)
		}
	}
	if err := s.wal.Flush(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWALWriteFailed, err)
	}
	return nil
}

// Get 取得已 commit 的錢包，不等待錢包鎖
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.wallets[id]
	if !ok {
		return nil, domain.NotFound(id)
	}
	return domain.RestoreWallet(id, balance), nil
}

// Create 新增錢包
func (s *Store) Create(ctx context.Context, wallet *domain.Wallet) error {
	if err := s.locks.Lock(ctx, wallet.ID); err != nil {
		return err
	}
	defer s.locks.Unlock(wallet.ID)

	s.mu.RLock()
	_, exists := s.wallets[wallet.ID]
	s.mu.RUnlock()
	if exists {
		return domain.ErrWalletAlreadyExists
	}
	return s.commit(map[uuid.UUID]decimal.Decimal{wallet.ID: wallet.Balance})
}

// LoadAll 回傳目前所有錢包的複本
func (s *Store) LoadAll(ctx context.Context) (map[uuid.UUID]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]*domain.Wallet, len(s.wallets))
	for id, balance := range s.wallets {
		out[id] = domain.RestoreWallet(id, balance)
	}
	return out, nil
}

// memTx 單次交易: 持有的錢包鎖與尚未 commit 的餘額
type memTx struct {
	store  *Store
	held   map[uuid.UUID]struct{}
	staged map[uuid.UUID]decimal.Decimal
}

func (t *memTx) LockedGet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	if _, ok := t.held[id]; !ok {
		if err := t.store.locks.Lock(ctx, id); err != nil {
			return nil, err
		}
		t.held[id] = struct{}{}
	}
	if balance, ok := t.staged[id]; ok {
		return domain.RestoreWallet(id, balance), nil
	}
	return t.store.Get(ctx, id)
}

func (t *memTx) Save(ctx context.Context, wallet *domain.Wallet) error {
	if _, ok := t.held[wallet.ID]; !ok {
		return errNotLocked
	}
	t.staged[wallet.ID] = wallet.Balance
	return nil
}

func (t *memTx) releaseAll() {
	for id := range t.held {
		t.store.locks.Unlock(id)
	}
}

var _ usecase.Store = (*Store)(nil)
