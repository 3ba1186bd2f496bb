package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	grpc_adapter "github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/in/grpc"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/pkg/grpc"
	"github.com/JoeShih716/go-wallet-ledger/pkg/logger"
)

// 對同一個錢包併發存提款，最後檢查餘額 = 初始存款 + 成功存款 - 成功提款，且不為負
func main() {
	target := flag.String("target", "localhost:50051", "grpc server address")
	total := flag.Int("n", 10000, "number of operations")
	concurrency := flag.Int("c", 100, "concurrent workers")
	initial := flag.String("initial", "1000.00", "initial deposit")
	amount := flag.String("amount", "10.00", "amount per operation")
	flag.Parse()

	log := logger.Setup(os.Stderr, logger.Config{Level: "info"})

	pool := grpc.NewPool(grpc.WithInterceptor(grpc.LoggingInterceptor(log)))
	defer pool.Close()
	conn, err := pool.GetConnection(*target)
	if err != nil {
		log.Error("did not connect", "error", err)
		os.Exit(1)
	}
	client := grpc_adapter.NewWalletClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	walletID, err := client.CreateWallet(ctx)
	if err != nil {
		log.Error("create wallet", "error", err)
		os.Exit(1)
	}
	if _, err := client.PerformOperation(ctx, walletID, domain.OperationTypeDeposit, *initial); err != nil {
		log.Error("initial deposit", "error", err)
		os.Exit(1)
	}

	var deposits, withdrawals, rejected atomic.Int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := 0; i < *total; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			// 每三筆一筆存款，其餘為提款，讓餘額有機會見底
			opType := domain.OperationTypeWithdraw
			if idx%3 == 0 {
				opType = domain.OperationTypeDeposit
			}
			_, err := client.PerformOperation(ctx, walletID, opType, *amount)
			switch {
			case err != nil:
				rejected.Add(1)
			case opType == domain.OperationTypeDeposit:
				deposits.Add(1)
			default:
				withdrawals.Add(1)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	balanceStr, err := client.GetBalance(ctx, walletID)
	if err != nil {
		log.Error("get balance", "error", err)
		os.Exit(1)
	}
	balance := decimal.RequireFromString(balanceStr)
	step := decimal.RequireFromString(*amount)
	expected := decimal.RequireFromString(*initial).
		Add(step.Mul(decimal.NewFromInt(deposits.Load()))).
		Sub(step.Mul(decimal.NewFromInt(withdrawals.Load())))

	fmt.Printf("Completed %d requests in %v\n", *total, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*total)/elapsed.Seconds())
	fmt.Printf("deposits=%d withdrawals=%d rejected=%d\n", deposits.Load(), withdrawals.Load(), rejected.Load())
	fmt.Printf("balance=%s expected=%s\n", balanceStr, domain.FormatBalance(expected))

	if balance.IsNegative() || !balance.Equal(expected) {
		log.Error("balance mismatch", "balance", balanceStr, "expected", domain.FormatBalance(expected))
		os.Exit(1)
	}
}
