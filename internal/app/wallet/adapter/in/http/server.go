package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/adapter/in/dto"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
)

// Handler 錢包 REST API
//
//	POST /api/v1/wallet              存提款
//	GET  /api/v1/wallets/:walletId   查詢餘額
//	POST /api/v1/wallets             建立錢包
type Handler struct {
	wallets *usecase.WalletUseCase
	logger  *slog.Logger
}

func NewHandler(wallets *usecase.WalletUseCase, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		wallets: wallets,
		logger:  logger,
	}
}

// NewApp 建立已掛好路由的 fiber.App
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	app.Use(recover.New())

	v1 := app.Group("/api/v1")
	v1.Post("/wallet", h.PerformOperation)
	v1.Get("/wallets/:walletId", h.GetBalance)
	v1.Post("/wallets", h.CreateWallet)
	return app
}

func (h *Handler) PerformOperation(c *fiber.Ctx) error {
	var req dto.OperationRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.Join(dto.ErrInvalidRequest, err)
	}
	op, err := req.ToOperation()
	if err != nil {
		return err
	}
	if _, err := h.wallets.Apply(c.UserContext(), op); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

// GetBalance 回傳 JSON 數字，固定兩位小數，例如 1500.00
func (h *Handler) GetBalance(c *fiber.Ctx) error {
	id, err := dto.ParseWalletID(c.Params("walletId"))
	if err != nil {
		return err
	}
	balance, err := h.wallets.GetBalance(c.UserContext(), id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(domain.FormatBalance(balance))
}

func (h *Handler) CreateWallet(c *fiber.Ctx) error {
	wallet, err := h.wallets.CreateWallet(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"walletId": wallet.ID.String(),
	})
}

// errorHandler 依錯誤種類決定 HTTP 狀態碼，body 為錯誤訊息
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	code := statusCode(err)
	if code == fiber.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(err.Error())
}

func statusCode(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, domain.ErrWalletNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrBalanceOverflow),
		errors.Is(err, dto.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrLockTimeout):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return fiber.StatusRequestTimeout
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}
