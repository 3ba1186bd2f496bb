package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// 服務與方法名稱
const (
	ServiceName = "wallet.v1.WalletService"

	PerformOperationMethod = "/" + ServiceName + "/PerformOperation"
	GetBalanceMethod       = "/" + ServiceName + "/GetBalance"
	CreateWalletMethod     = "/" + ServiceName + "/CreateWallet"
)

// WalletServiceServer 錢包 gRPC 服務
// 訊息只使用 protobuf well-known types，不需要額外的 .proto 產生碼
type WalletServiceServer interface {
	PerformOperation(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	GetBalance(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	CreateWallet(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// RegisterWalletServiceServer 將服務註冊到 gRPC server
func RegisterWalletServiceServer(s grpc.ServiceRegistrar, srv WalletServiceServer) {
	s.RegisterService(&WalletServiceDesc, srv)
}

var WalletServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WalletServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PerformOperation", Handler: performOperationHandler},
		{MethodName: "GetBalance", Handler: getBalanceHandler},
		{MethodName: "CreateWallet", Handler: createWalletHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wallet/v1/wallet.proto",
}

func performOperationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServiceServer).PerformOperation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PerformOperationMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WalletServiceServer).PerformOperation(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getBalanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServiceServer).GetBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetBalanceMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WalletServiceServer).GetBalance(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func createWalletHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WalletServiceServer).CreateWallet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateWalletMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WalletServiceServer).CreateWallet(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
