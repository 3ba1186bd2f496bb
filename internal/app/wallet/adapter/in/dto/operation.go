package dto

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
)

// ErrInvalidRequest 請求格式或欄位驗證失敗
var ErrInvalidRequest = errors.New("invalid request")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// OperationRequest 存提款請求 (HTTP body / gRPC Struct 共用)
type OperationRequest struct {
	WalletID      string          `json:"walletId" validate:"required,uuid"`
	OperationType string          `json:"operationType" validate:"required,oneof=DEPOSIT WITHDRAW"`
	Amount        decimal.Decimal `json:"amount"`
}

// ToOperation 驗證並轉成 domain.Operation
func (r OperationRequest) ToOperation() (domain.Operation, error) {
	if err := getValidator().Struct(r); err != nil {
		return domain.Operation{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	id, err := uuid.Parse(r.WalletID)
	if err != nil {
		return domain.Operation{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	opType, err := domain.ParseOperationType(r.OperationType)
	if err != nil {
		return domain.Operation{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	op, err := domain.NewOperation(id, opType, r.Amount)
	if err != nil {
		return domain.Operation{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return op, nil
}

// ParseWalletID 解析路徑或訊息中的錢包 ID
func ParseWalletID(raw string) (uuid.UUID, error) {
	if err := getValidator().Var(raw, "required,uuid"); err != nil {
		return uuid.Nil, fmt.Errorf("%w: wallet id %q", ErrInvalidRequest, raw)
	}
	return uuid.Parse(raw)
}
