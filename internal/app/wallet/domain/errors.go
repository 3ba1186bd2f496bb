package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrAmountMustBePositive 金額必須為正數
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrAmountScale 金額小數位數超過 BalanceScale
	ErrAmountScale = errors.New("amount has more than 2 fractional digits")

	// ErrAmountTooLarge 金額超過 MaxBalance
	ErrAmountTooLarge = errors.New("amount exceeds maximum balance")

	// ErrBalanceOverflow 存款後餘額超過 MaxBalance
	ErrBalanceOverflow = errors.New("balance would exceed maximum")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrWalletNotFound 找不到錢包
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletAlreadyExists 錢包已存在
	ErrWalletAlreadyExists = errors.New("wallet already exists")

	// ErrInvalidWalletID 錢包 ID 為空
	ErrInvalidWalletID = errors.New("wallet id is required")

	// ErrUnknownOperationType 未知的操作類型
	ErrUnknownOperationType = errors.New("unknown operation type")

	// ErrLockTimeout 等待錢包鎖逾時，呼叫端可重試
	ErrLockTimeout = errors.New("wallet lock wait timeout")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)

// WalletNotFoundError 帶有錢包 ID 的 ErrWalletNotFound
type WalletNotFoundError struct {
	WalletID uuid.UUID
}

func (e *WalletNotFoundError) Error() string {
	return fmt.Sprintf("wallet not found: %s", e.WalletID)
}

func (e *WalletNotFoundError) Is(target error) bool {
	return target == ErrWalletNotFound
}

// InsufficientBalanceError 帶有錢包 ID 的 ErrInsufficientBalance
type InsufficientBalanceError struct {
	WalletID uuid.UUID
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on wallet: %s", e.WalletID)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// NotFound 建立 WalletNotFoundError
func NotFound(id uuid.UUID) error {
	return &WalletNotFoundError{WalletID: id}
}

// Insufficient 建立 InsufficientBalanceError
func Insufficient(id uuid.UUID) error {
	return &InsufficientBalanceError{WalletID: id}
}
