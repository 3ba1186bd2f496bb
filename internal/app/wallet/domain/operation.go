package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceScale 餘額與金額的小數位數
const BalanceScale int32 = 2

// MaxBalance 單一錢包可持有的最大餘額，對應 decimal(19,2) 欄位
var MaxBalance = decimal.RequireFromString("99999999999999999.99")

// OperationType 操作類型
type OperationType uint8

const (
	// 存款
	OperationTypeDeposit OperationType = 1
	// 提款
	OperationTypeWithdraw OperationType = 2
)

func (t OperationType) String() string {
	switch t {
	case OperationTypeDeposit:
		return "DEPOSIT"
	case OperationTypeWithdraw:
		return "WITHDRAW"
	default:
		return "UNKNOWN"
	}
}

// ParseOperationType 將 "DEPOSIT" / "WITHDRAW" (不分大小寫) 轉成 OperationType
func ParseOperationType(s string) (OperationType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEPOSIT":
		return OperationTypeDeposit, nil
	case "WITHDRAW":
		return OperationTypeWithdraw, nil
	default:
		return 0, ErrUnknownOperationType
	}
}

// Operation 單一錢包的存提款請求，不會被保存
type Operation struct {
	WalletID uuid.UUID
	Type     OperationType
	Amount   decimal.Decimal
}

// NewOperation 建立並驗證一筆操作
//
// 參數:
//
//	walletID: 錢包 ID
//	opType: 操作類型
//	amount: 金額 (正數，最多兩位小數，不超過 MaxBalance)
//
// 回傳:
//
//	Operation: 操作
//	error: 驗證錯誤
func NewOperation(walletID uuid.UUID, opType OperationType, amount decimal.Decimal) (Operation, error) {
	op := Operation{WalletID: walletID, Type: opType, Amount: amount}
	if err := op.Validate(); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// Validate 檢查操作欄位
func (o Operation) Validate() error {
	if o.WalletID == uuid.Nil {
		return ErrInvalidWalletID
	}
	if o.Type != OperationTypeDeposit && o.Type != OperationTypeWithdraw {
		return ErrUnknownOperationType
	}
	if !o.Amount.IsPositive() {
		return ErrAmountMustBePositive
	}
	if !o.Amount.Equal(o.Amount.Truncate(BalanceScale)) {
		return ErrAmountScale
	}
	if o.Amount.GreaterThan(MaxBalance) {
		return ErrAmountTooLarge
	}
	return nil
}
