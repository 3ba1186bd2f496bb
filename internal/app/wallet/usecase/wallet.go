package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
)

// WalletUseCase 是錢包的核心業務邏輯層
type WalletUseCase struct {
	store       Store
	lockTimeout time.Duration
	logger      *slog.Logger
}

// Option 設定 WalletUseCase
type Option func(*WalletUseCase)

// WithLockTimeout 設定單筆操作等待錢包鎖的上限，0 表示不限制
func WithLockTimeout(d time.Duration) Option {
	return func(uc *WalletUseCase) {
		uc.lockTimeout = d
	}
}

// WithLogger 設定 logger
func WithLogger(logger *slog.Logger) Option {
	return func(uc *WalletUseCase) {
		uc.logger = logger
	}
}

func NewWalletUseCase(store Store, opts ...Option) *WalletUseCase {
	uc := &WalletUseCase{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Apply 執行一筆存款或提款
//
// 參數:
//
//	ctx: 上下文
//	op: 已驗證的操作
//
// 回傳:
//
//	decimal.Decimal: commit 後的餘額
//	error: *domain.WalletNotFoundError, *domain.InsufficientBalanceError, domain.ErrBalanceOverflow,
//	       domain.ErrLockTimeout 或 Store 的原始錯誤
//
// 流程: Begin -> LockedGet -> 檢查/計算 -> Save -> Commit (釋放鎖)
func (uc *WalletUseCase) Apply(ctx context.Context, op domain.Operation) (decimal.Decimal, error) {
	if err := op.Validate(); err != nil {
		return decimal.Zero, err
	}

	if uc.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.lockTimeout)
		defer cancel()
	}

	var balance decimal.Decimal
	err := uc.store.WithinTx(ctx, func(tx Tx) error {
		wallet, err := tx.LockedGet(ctx, op.WalletID)
		if err != nil {
			return err
		}
		// 在複本上計算，失敗時交易 rollback，錢包不變
		next := *wallet
		if err := next.Apply(op); err != nil {
			return err
		}
		if err := tx.Save(ctx, &next); err != nil {
			return err
		}
		balance = next.Balance
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrLockTimeout) {
			err = errors.Join(domain.ErrLockTimeout, err)
		}
		uc.logOperationError(op, err)
		return decimal.Zero, err
	}
	return balance.Round(domain.BalanceScale), nil
}

// GetBalance 取得錢包餘額 (不加鎖，read committed)
func (uc *WalletUseCase) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	wallet, err := uc.store.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance.Round(domain.BalanceScale), nil
}

// CreateWallet 建立餘額為 0 的錢包
func (uc *WalletUseCase) CreateWallet(ctx context.Context) (*domain.Wallet, error) {
	wallet := domain.NewWallet()
	if err := uc.store.Create(ctx, wallet); err != nil {
		uc.logger.Error("create wallet failed", "wallet_id", wallet.ID, "error", err)
		return nil, err
	}
	uc.logger.Info("wallet created", "wallet_id", wallet.ID)
	return wallet, nil
}

func (uc *WalletUseCase) logOperationError(op domain.Operation, err error) {
	attrs := []any{
		"wallet_id", op.WalletID,
		"operation", op.Type.String(),
		"amount", domain.FormatBalance(op.Amount),
		"error", err,
	}
	switch {
	case errors.Is(err, domain.ErrWalletNotFound), errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrBalanceOverflow):
		uc.logger.Info("operation rejected", attrs...)
	case errors.Is(err, domain.ErrLockTimeout):
		uc.logger.Warn("operation timed out waiting for wallet lock", attrs...)
	default:
		uc.logger.Error("operation failed", attrs...)
	}
}
