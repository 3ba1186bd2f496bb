package grpc

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/in/dto"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
)

type GrpcServer struct {
	wallets *usecase.WalletUseCase
}

func NewGrpcServer(wallets *usecase.WalletUseCase) *GrpcServer {
	return &GrpcServer{
		wallets: wallets,
	}
}

// PerformOperation 執行存提款，回傳最新餘額
// 請求欄位: walletId (string), operationType ("DEPOSIT"/"WITHDRAW"), amount (string 或 number)
func (s *GrpcServer) PerformOperation(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	// 1. 解析請求
	opReq, err := operationRequestFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	op, err := opReq.ToOperation()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	// 2. 執行操作
	balance, err := s.wallets.Apply(ctx, op)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(domain.FormatBalance(balance)), nil
}

// GetBalance 查詢錢包餘額
func (s *GrpcServer) GetBalance(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	id, err := dto.ParseWalletID(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	balance, err := s.wallets.GetBalance(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(domain.FormatBalance(balance)), nil
}

// CreateWallet 建立新錢包，回傳錢包 ID
func (s *GrpcServer) CreateWallet(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	wallet, err := s.wallets.CreateWallet(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(wallet.ID.String()), nil
}

func operationRequestFromStruct(req *structpb.Struct) (dto.OperationRequest, error) {
	fields := req.GetFields()
	out := dto.OperationRequest{
		WalletID:      fields["walletId"].GetStringValue(),
		OperationType: fields["operationType"].GetStringValue(),
	}

	amount, ok := fields["amount"]
	if !ok {
		return out, fmt.Errorf("%w: amount is required", dto.ErrInvalidRequest)
	}
	switch v := amount.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(v.StringValue)
		if err != nil {
			return out, fmt.Errorf("%w: amount: %w", dto.ErrInvalidRequest, err)
		}
		out.Amount = d
	case *structpb.Value_NumberValue:
		// NaN / Inf 無法轉成 decimal
		if math.IsNaN(v.NumberValue) || math.IsInf(v.NumberValue, 0) {
			return out, fmt.Errorf("%w: amount must be a finite number", dto.ErrInvalidRequest)
		}
		out.Amount = decimal.NewFromFloat(v.NumberValue)
	default:
		return out, fmt.Errorf("%w: amount must be a string or number", dto.ErrInvalidRequest)
	}
	return out, nil
}

// toStatus 將錯誤轉成 gRPC status
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrWalletNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrBalanceOverflow),
		errors.Is(err, dto.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrLockTimeout):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

var _ WalletServiceServer = (*GrpcServer)(nil)
