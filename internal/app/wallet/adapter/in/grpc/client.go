package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
)

// WalletClient WalletService 的 gRPC client
type WalletClient struct {
	cc grpc.ClientConnInterface
}

func NewWalletClient(cc grpc.ClientConnInterface) *WalletClient {
	return &WalletClient{cc: cc}
}

// PerformOperation 送出存提款，回傳最新餘額字串 (例如 "1500.00")
func (c *WalletClient) PerformOperation(ctx context.Context, walletID uuid.UUID, opType domain.OperationType, amount string, opts ...grpc.CallOption) (string, error) {
	in, err := structpb.NewStruct(map[string]any{
		"walletId":      walletID.String(),
		"operationType": opType.String(),
		"amount":        amount,
	})
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, PerformOperationMethod, in, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// GetBalance 查詢餘額
func (c *WalletClient) GetBalance(ctx context.Context, walletID uuid.UUID, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, GetBalanceMethod, wrapperspb.String(walletID.String()), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// CreateWallet 建立錢包
func (c *WalletClient) CreateWallet(ctx context.Context, opts ...grpc.CallOption) (uuid.UUID, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, CreateWalletMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(out.GetValue())
}
