package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet 錢包，餘額永遠 >= 0
type Wallet struct {
	ID      uuid.UUID
	Balance decimal.Decimal
}

// NewWallet 建立一個新的錢包，ID 由系統產生，餘額為 0
func NewWallet() *Wallet {
	return &Wallet{
		ID:      uuid.New(),
		Balance: decimal.Zero,
	}
}

// RestoreWallet 以既有資料還原錢包 (由 Store 使用)
func RestoreWallet(id uuid.UUID, balance decimal.Decimal) *Wallet {
	return &Wallet{
		ID:      id,
		Balance: balance,
	}
}

// Deposit 存款
func (w *Wallet) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountMustBePositive
	}

	next := w.Balance.Add(amount).Round(BalanceScale)
	if next.GreaterThan(MaxBalance) {
		return ErrBalanceOverflow
	}
	w.Balance = next
	return nil
}

// Withdraw 提款，餘額不足時錢包維持不變
func (w *Wallet) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountMustBePositive
	}

	if w.Balance.LessThan(amount) {
		return Insufficient(w.ID)
	}

	w.Balance = w.Balance.Sub(amount).Round(BalanceScale)
	return nil
}

// Apply 依照操作類型執行存款或提款
func (w *Wallet) Apply(op Operation) error {
	switch op.Type {
	case OperationTypeDeposit:
		return w.Deposit(op.Amount)
	case OperationTypeWithdraw:
		return w.Withdraw(op.Amount)
	default:
		return ErrUnknownOperationType
	}
}

// FormatBalance 以兩位小數輸出餘額，例如 "1500.00"
func FormatBalance(balance decimal.Decimal) string {
	return balance.StringFixed(BalanceScale)
}
