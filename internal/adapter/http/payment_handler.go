package http

import (
	"net/http"

	"p2p-lending/internal/usecase/payment"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	uc  *payment.Usecase
	log *zap.Logger
}

func NewPaymentHandler(uc *payment.Usecase, log *zap.Logger) *PaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{uc: uc, log: log}
}

func (h *PaymentHandler) ListPayments(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	out, err := h.uc.Schedule(c.Request().Context(), c.Param("loan_id"), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) PayInstallment(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Pay(c.Request().Context(), payment.PayInput{
		LoanID:     c.Param("loan_id"),
		PaymentID:  c.Param("payment_id"),
		BorrowerID: userID,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
