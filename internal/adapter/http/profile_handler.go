package http

import (
	"context"
	"net/http"

	"p2p-lending/internal/usecase/ledger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	uc  *ledger.Usecase
	log *zap.Logger
}

func NewProfileHandler(uc *ledger.Usecase, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{uc: uc, log: log}
}

type amountReq struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0,dec2"`
}

func (h *ProfileHandler) Balance(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Balance(c.Request().Context(), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ProfileHandler) Deposit(c echo.Context) error {
	return h.move(c, h.uc.Deposit)
}

func (h *ProfileHandler) Withdraw(c echo.Context) error {
	return h.move(c, h.uc.Withdraw)
}

func (h *ProfileHandler) move(c echo.Context, op func(context.Context, ledger.AmountInput) (*ledger.BalanceDTO, error)) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	var req amountReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := op(c.Request().Context(), ledger.AmountInput{UserID: userID, Amount: req.Amount})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ProfileHandler) Transactions(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	out, err := h.uc.Transactions(c.Request().Context(), userID, queryLimit(c, ledger.DefaultHistoryLimit, maxPageSize))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
