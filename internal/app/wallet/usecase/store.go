package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
)

// Store 錢包的持久層介面
type Store interface {
	// WithinTx 在單一交易內執行 fn；fn 回傳 nil 時 commit，否則 rollback
	// commit/rollback 會釋放交易內取得的所有錢包鎖
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	// Get 不加鎖讀取已 commit 的錢包
	Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	// Create 新增錢包
	Create(ctx context.Context, wallet *domain.Wallet) error
	// LoadAll 載入所有錢包
	LoadAll(ctx context.Context) (map[uuid.UUID]*domain.Wallet, error)
}

// Tx 交易範圍內的錢包操作
type Tx interface {
	// LockedGet 讀取錢包並鎖定到交易結束 (SELECT ... FOR UPDATE)
	LockedGet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	// Save 寫入新餘額，必須先持有 LockedGet 取得的鎖
	Save(ctx context.Context, wallet *domain.Wallet) error
}
