package http

import (
	"net/http"

	"p2p-lending/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type LoanHandler struct {
	uc  *loan.Usecase
	log *zap.Logger
}

func NewLoanHandler(uc *loan.Usecase, log *zap.Logger) *LoanHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoanHandler{uc: uc, log: log}
}

type createLoanReq struct {
	Amount       decimal.Decimal  `json:"amount"        validate:"gt=0,dec2"`
	TermMonths   int              `json:"term_months"   validate:"gt=0"`
	InterestRate *decimal.Decimal `json:"interest_rate" validate:"omitempty,gte=0,dec2"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	var req createLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Create(c.Request().Context(), loan.CreateLoanInput{
		BorrowerID:   userID,
		Amount:       req.Amount,
		TermMonths:   req.TermMonths,
		InterestRate: req.InterestRate,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) ListAvailable(c echo.Context) error {
	out, err := h.uc.ListAvailable(c.Request().Context(), queryLimit(c, defaultPageSize, maxPageSize))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) OpenLoan(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Open(c.Request().Context(), c.Param("loan_id"), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) FundLoan(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Fund(c.Request().Context(), c.Param("loan_id"), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
