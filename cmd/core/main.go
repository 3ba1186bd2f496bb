package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/in/grpc"
	http_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/in/http"
	memory_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/out/mysql"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
	"github.com/JoeShih716/go-wallet-ledger/internal/config"
	"github.com/JoeShih716/go-wallet-ledger/pkg/logger"
	"github.com/JoeShih716/go-wallet-ledger/pkg/mysql"
	"github.com/JoeShih716/go-wallet-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(os.Stdout, cfg.Log)

	ctx := context.Background()

	// 2. 初始化 MySQL Client (Base Infrastructure)
	var dbClient *mysql.Client
	if cfg.NeedsMySQL() {
		dbClient, err = mysql.NewClient(cfg.MySQL)
		if err != nil {
			log.Error("failed to connect to mysql", "error", err)
			os.Exit(1)
		}
		defer dbClient.Close()
		log.Info("connected to mysql")
	}

	// 3. 選擇 Store
	var store usecase.Store
	switch cfg.Store.Type {
	case config.StoreTypeMySQL:
		mysqlStore := mysql_adapter.NewStore(dbClient.DB())
		if err := mysqlStore.Migrate(ctx); err != nil {
			log.Error("failed to migrate wallets table", "error", err)
			os.Exit(1)
		}
		store = mysqlStore
	case config.StoreTypeMemory:
		var seed map[uuid.UUID]*domain.Wallet
		if cfg.Store.SeedFromMySQL {
			seed, err = mysql_adapter.NewStore(dbClient.DB()).LoadAll(ctx)
			if err != nil {
				log.Error("failed to load wallets", "error", err)
				os.Exit(1)
			}
			log.Info("loaded wallets", "count", len(seed))
		}

		var walFile *wal.WAL
		if cfg.WAL.Path != "" {
			walFile, err = wal.NewWAL(cfg.WAL.Path)
			if err != nil {
				log.Error("failed to open wal", "path", cfg.WAL.Path, "error", err)
				os.Exit(1)
			}
			// 程式結束時關閉 WAL
			defer walFile.Close()
		}

		store, err = memory_adapter.NewStore(seed, walFile)
		if err != nil {
			log.Error("failed to init memory store", "error", err)
			os.Exit(1)
		}
	}
	log.Info("store ready", "type", cfg.Store.Type)

	// 4. 初始化 UseCase
	wallets := usecase.NewWalletUseCase(store,
		usecase.WithLockTimeout(cfg.Wallet.LockTimeout),
		usecase.WithLogger(log),
	)

	// 5. 啟動 gRPC / HTTP
	var grpcServer *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			log.Error("failed to listen", "addr", cfg.GRPC.Addr, "error", err)
			os.Exit(1)
		}
		grpcServer = grpc.NewServer(
			grpc.ChainUnaryInterceptor(grpc_adapter.RecoveryInterceptor(log)),
		)
		grpc_adapter.RegisterWalletServiceServer(grpcServer, grpc_adapter.NewGrpcServer(wallets))
		reflection.Register(grpcServer)

		go func() {
			log.Info("starting grpc server", "addr", cfg.GRPC.Addr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Error("grpc server stopped", "error", err)
				os.Exit(1)
			}
		}()
	}

	httpApp := http_adapter.NewApp(http_adapter.NewHandler(wallets, log))
	if cfg.HTTP.Addr != "" {
		go func() {
			log.Info("starting http server", "addr", cfg.HTTP.Addr)
			if err := httpApp.Listen(cfg.HTTP.Addr); err != nil {
				log.Error("http server stopped", "error", err)
				os.Exit(1)
			}
		}()
	}

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	if cfg.HTTP.Addr != "" {
		if err := httpApp.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("http shutdown", "error", err)
		}
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	log.Info("server exited")
}
