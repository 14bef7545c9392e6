package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/domain/uow"
	"p2p-lending/internal/testutil/loanmock"
	uc "p2p-lending/internal/usecase/loan"

	"github.com/labstack/echo/v4"
)

var (
	borrower = strings.Repeat("b", 32)
	lender   = strings.Repeat("c", 32)
)

func TestCreateLoan_Success(t *testing.T) {
	e := newAPI(t)
	var got uc.LoanDTO
	rec := call(t, e, stdhttp.MethodPost, "/loans/", borrower, `{"amount":"5000","term_months":6,"interest_rate":8}`, &got)

	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", rec.Code, rec.Body.String())
	}
	if got.BorrowerID != borrower || got.Status != string(loan.StatusDraft) || got.TermMonths != 6 {
		t.Fatalf("unexpected dto: %+v", got)
	}
	if got.Fee.String() != "3.75" {
		t.Fatalf("fee = %s", got.Fee)
	}
}

func TestCreateLoan_Identity(t *testing.T) {
	e := newAPI(t)
	for _, user := range []string{"", "NOT_HEX"} {
		var er ErrorResponse
		rec := call(t, e, stdhttp.MethodPost, "/loans/", user, `{"amount":"10","term_months":1}`, &er)
		if rec.Code != stdhttp.StatusUnauthorized {
			t.Fatalf("user %q: status = %d, want 401", user, rec.Code)
		}
		if !strings.Contains(er.Detail, HeaderUserID) {
			t.Fatalf("detail = %q", er.Detail)
		}
	}
}

func TestCreateLoan_BindError(t *testing.T) {
	var er ErrorResponse
	rec := call(t, newAPI(t), stdhttp.MethodPost, "/loans/", borrower, `{"amount":`, &er)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if er.Detail != "invalid body" {
		t.Fatalf("detail = %q, want %q", er.Detail, "invalid body")
	}
}

func TestCreateLoan_ValidationError(t *testing.T) {
	var er ErrorResponse
	rec := call(t, newAPI(t), stdhttp.MethodPost, "/loans/", borrower, `{"amount":"10.001","term_months":0,"interest_rate":"1.234"}`, &er)
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if er.Detail != "validation failed" {
		t.Fatalf("detail = %q", er.Detail)
	}
	if !containsFieldMsg(er.Fields, "amount", "at most 2 decimal places") {
		t.Fatalf("missing amount detail: %+v", er.Fields)
	}
	if !containsFieldMsg(er.Fields, "term_months", "greater than 0") {
		t.Fatalf("missing term detail: %+v", er.Fields)
	}
	if !containsFieldMsg(er.Fields, "interest_rate", "at most 2 decimal places") {
		t.Fatalf("missing rate detail: %+v", er.Fields)
	}
}

func TestCreateLoan_PolicyLimits(t *testing.T) {
	var er ErrorResponse
	rec := call(t, newAPI(t), stdhttp.MethodPost, "/loans/", borrower, `{"amount":"100","term_months":361,"interest_rate":"50.01"}`, &er)
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if len(er.Fields) != 2 || er.Fields[0].Field != "interest_rate" || er.Fields[1].Field != "term_months" {
		t.Fatalf("fields = %+v", er.Fields)
	}
}

func TestGetLoan_NotFound(t *testing.T) {
	var er ErrorResponse
	rec := call(t, newAPI(t), stdhttp.MethodGet, "/loans/"+strings.Repeat("d", 32)+"/", borrower, "", &er)
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if er.Detail != "loan not found" {
		t.Fatalf("detail = %q", er.Detail)
	}
}

func TestGetLoan_Visibility(t *testing.T) {
	e := newAPI(t)
	var created uc.LoanDTO
	call(t, e, stdhttp.MethodPost, "/loans/", borrower, `{"amount":"1000","term_months":12}`, &created)
	path := "/loans/" + created.LoanID + "/"

	if rec := call(t, e, stdhttp.MethodGet, path, "", "", nil); rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d, want 401", rec.Code)
	}
	if rec := call(t, e, stdhttp.MethodGet, path, lender, "", nil); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("stranger on draft: status = %d, want 404", rec.Code)
	}
	var got uc.LoanDTO
	if rec := call(t, e, stdhttp.MethodGet, path, borrower, "", &got); rec.Code != stdhttp.StatusOK {
		t.Fatalf("borrower: status = %d", rec.Code)
	}
	if got.Closed {
		t.Fatalf("draft loan reported closed")
	}

	call(t, e, stdhttp.MethodPost, path+"open/", borrower, "", nil)
	if rec := call(t, e, stdhttp.MethodGet, path, lender, "", nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("prospective lender on open loan: status = %d, want 200", rec.Code)
	}
}

func TestGetLoan_UnexpectedErrorIsHidden(t *testing.T) {
	e := echo.New()
	// The mock's default read error is not a domain error.
	h := NewLoanHandler(uc.NewUsecase(nil, uow.Repos{Loans: &loanmock.Repo{}}, loan.DefaultPolicy(), nil), nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/loans/x/", nil)
	req.Header.Set(HeaderUserID, borrower)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loan_id")
	c.SetParamValues("x")

	if err := h.GetLoan(c); err != nil {
		t.Fatalf("GetLoan error: %v", err)
	}
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Detail != "internal error" || strings.Contains(rec.Body.String(), context.Canceled.Error()) {
		t.Fatalf("leaked error: %s", rec.Body.String())
	}
}

func TestOpenLoan_OnlyBorrower(t *testing.T) {
	e := newAPI(t)
	var created uc.LoanDTO
	call(t, e, stdhttp.MethodPost, "/loans/", borrower, `{"amount":"1000","term_months":12}`, &created)
	path := "/loans/" + created.LoanID + "/open/"

	if rec := call(t, e, stdhttp.MethodPost, path, lender, "", nil); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("stranger open: status = %d, want 404", rec.Code)
	}
	var opened uc.LoanDTO
	if rec := call(t, e, stdhttp.MethodPost, path, borrower, "", &opened); rec.Code != stdhttp.StatusOK {
		t.Fatalf("open: status = %d", rec.Code)
	}
	if opened.Status != string(loan.StatusOpen) {
		t.Fatalf("status = %s", opened.Status)
	}
	if rec := call(t, e, stdhttp.MethodPost, path, borrower, "", nil); rec.Code != stdhttp.StatusConflict {
		t.Fatalf("second open: status = %d, want 409", rec.Code)
	}

	var avail []uc.LoanDTO
	call(t, e, stdhttp.MethodGet, "/loans/available/?limit=10", "", "", &avail)
	if len(avail) != 1 || avail[0].LoanID != created.LoanID {
		t.Fatalf("available = %+v", avail)
	}
}
