package http

import "github.com/labstack/echo/v4"

type Handlers struct {
	Health   *Handler
	Loans    *LoanHandler
	Offers   *OfferHandler
	Payments *PaymentHandler
	Profiles *ProfileHandler
}

// Register mounts every route. idem wraps the mutating ones; it may be nil.
func Register(e *echo.Echo, h Handlers, idem echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if idem != nil {
		mw = append(mw, idem)
	}

	e.GET("/health", h.Health.Health)

	loans := e.Group("/loans")
	loans.POST("/", h.Loans.CreateLoan, mw...)
	loans.GET("/available/", h.Loans.ListAvailable)
	loans.GET("/:loan_id/", h.Loans.GetLoan)
	loans.POST("/:loan_id/open/", h.Loans.OpenLoan, mw...)
	loans.POST("/:loan_id/reopen/", h.Offers.ReopenLoan, mw...)
	loans.GET("/:loan_id/offers/", h.Offers.ListOffers)
	loans.POST("/:loan_id/offers/", h.Offers.SubmitOffer, mw...)
	loans.POST("/:loan_id/offers/:offer_id/reject/", h.Offers.RejectOffer, mw...)
	loans.POST("/:loan_id/accept/", h.Offers.AcceptOffer, mw...)
	loans.POST("/:loan_id/fund/", h.Loans.FundLoan, mw...)
	loans.GET("/:loan_id/payments/", h.Payments.ListPayments)
	loans.POST("/:loan_id/payments/:payment_id/pay/", h.Payments.PayInstallment, mw...)

	me := e.Group("/profiles/me")
	me.GET("/", h.Profiles.Balance)
	me.POST("/deposit/", h.Profiles.Deposit, mw...)
	me.POST("/withdraw/", h.Profiles.Withdraw, mw...)
	me.GET("/transactions/", h.Profiles.Transactions)
}
