package grpc

import (
	"context"
	"math"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/in/dto"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/out/memory"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
	grpcpool "github.com/JoeShih716/go-wallet-ledger/pkg/grpc"
)

func startServer(t *testing.T, seed map[uuid.UUID]*domain.Wallet) *WalletClient {
	t.Helper()
	store, err := memory.NewStore(seed, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(RecoveryInterceptor(nil)))
	RegisterWalletServiceServer(s, NewGrpcServer(usecase.NewWalletUseCase(store)))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	pool := grpcpool.NewPool(grpcpool.WithDialOptions(
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	))
	t.Cleanup(func() { _ = pool.Close() })

	conn, err := pool.GetConnection("passthrough:///bufnet")
	require.NoError(t, err)
	return NewWalletClient(conn)
}

func TestGrpcServer_Scenario(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	client := startServer(t, map[uuid.UUID]*domain.Wallet{
		id: domain.RestoreWallet(id, decimal.RequireFromString("1000.00")),
	})

	balance, err := client.PerformOperation(ctx, id, domain.OperationTypeDeposit, "500.00")
	require.NoError(t, err)
	assert.Equal(t, "1500.00", balance)

	balance, err = client.PerformOperation(ctx, id, domain.OperationTypeWithdraw, "500.00")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", balance)

	_, err = client.PerformOperation(ctx, id, domain.OperationTypeWithdraw, "1500.00")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), id.String())

	balance, err = client.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", balance)
}

func TestGrpcServer_NotFoundAndInvalid(t *testing.T) {
	ctx := context.Background()
	client := startServer(t, nil)
	missing := uuid.New()

	_, err := client.PerformOperation(ctx, missing, domain.OperationTypeDeposit, "1")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetBalance(ctx, missing)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.PerformOperation(ctx, missing, domain.OperationTypeDeposit, "-1")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.PerformOperation(ctx, missing, domain.OperationTypeDeposit, "abc")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGrpcServer_CreateWallet(t *testing.T) {
	ctx := context.Background()
	client := startServer(t, nil)

	id, err := client.CreateWallet(ctx)
	require.NoError(t, err)

	balance, err := client.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "0.00", balance)
}

func TestOperationRequestFromStruct(t *testing.T) {
	id := uuid.New()

	req, err := structpb.NewStruct(map[string]any{
		"walletId":      id.String(),
		"operationType": "DEPOSIT",
		"amount":        12.5,
	})
	require.NoError(t, err)
	out, err := operationRequestFromStruct(req)
	require.NoError(t, err)
	assert.True(t, out.Amount.Equal(decimal.RequireFromString("12.5")))

	req, err = structpb.NewStruct(map[string]any{"walletId": id.String(), "operationType": "DEPOSIT"})
	require.NoError(t, err)
	_, err = operationRequestFromStruct(req)
	assert.Error(t, err)

	req, err = structpb.NewStruct(map[string]any{"walletId": id.String(), "operationType": "DEPOSIT", "amount": true})
	require.NoError(t, err)
	_, err = operationRequestFromStruct(req)
	assert.Error(t, err)

	for name, v := range map[string]float64{"nan": math.NaN(), "+inf": math.Inf(1), "-inf": math.Inf(-1)} {
		t.Run(name, func(t *testing.T) {
			req := &structpb.Struct{Fields: map[string]*structpb.Value{
				"walletId":      structpb.NewStringValue(id.String()),
				"operationType": structpb.NewStringValue("DEPOSIT"),
				"amount":        structpb.NewNumberValue(v),
			}}
			assert.NotPanics(t, func() {
				_, err := operationRequestFromStruct(req)
				assert.ErrorIs(t, err, dto.ErrInvalidRequest)
			})
		})
	}
}

func TestGrpcServer_NonFiniteAndOversizedAmount(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	client := startServer(t, map[uuid.UUID]*domain.Wallet{
		id: domain.RestoreWallet(id, domain.MaxBalance.Sub(decimal.NewFromInt(1))),
	})

	srv := NewGrpcServer(nil)
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"walletId":      structpb.NewStringValue(id.String()),
		"operationType": structpb.NewStringValue("DEPOSIT"),
		"amount":        structpb.NewNumberValue(math.NaN()),
	}}
	_, err := srv.PerformOperation(ctx, req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.PerformOperation(ctx, id, domain.OperationTypeDeposit, "1e300")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.PerformOperation(ctx, id, domain.OperationTypeDeposit, "2.00")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	balance, err := client.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "99999999999999998.99", balance)
}

func TestRecoveryInterceptor(t *testing.T) {
	intercept := RecoveryInterceptor(nil)
	info := &grpc.UnaryServerInfo{FullMethod: PerformOperationMethod}

	resp, err := intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err = intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(domain.ErrLockTimeout)))
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Canceled)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}
