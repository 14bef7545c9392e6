package http

import (
	"net/http"

	"p2p-lending/internal/usecase/offer"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OfferHandler struct {
	uc  *offer.Usecase
	log *zap.Logger
}

func NewOfferHandler(uc *offer.Usecase, log *zap.Logger) *OfferHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OfferHandler{uc: uc, log: log}
}

type submitOfferReq struct {
	InterestRate decimal.Decimal `json:"interest_rate" validate:"gt=0,dec2"`
}

type acceptOfferReq struct {
	OfferID string `json:"offer_id" validate:"omitempty,hex32"`
}

func (h *OfferHandler) ListOffers(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OfferHandler) SubmitOffer(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	var req submitOfferReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Submit(c.Request().Context(), offer.SubmitInput{
		LoanID:       c.Param("loan_id"),
		LenderID:     userID,
		InterestRate: req.InterestRate,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *OfferHandler) AcceptOffer(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	var req acceptOfferReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Accept(c.Request().Context(), offer.AcceptInput{
		LoanID:     c.Param("loan_id"),
		BorrowerID: userID,
		OfferID:    req.OfferID,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OfferHandler) RejectOffer(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Reject(c.Request().Context(), offer.RejectInput{
		LoanID:     c.Param("loan_id"),
		BorrowerID: userID,
		OfferID:    c.Param("offer_id"),
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OfferHandler) ReopenLoan(c echo.Context) error {
	userID, ok, err := callerID(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Reopen(c.Request().Context(), c.Param("loan_id"), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
