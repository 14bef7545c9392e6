package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"p2p-lending/internal/adapter/repository/mysql"
	"p2p-lending/internal/domain/loan"
	"p2p-lending/internal/testutil/dbtest"
	"p2p-lending/internal/usecase/ledger"
	loanUC "p2p-lending/internal/usecase/loan"
	offerUC "p2p-lending/internal/usecase/offer"
	paymentUC "p2p-lending/internal/usecase/payment"

	"github.com/labstack/echo/v4"
)

// newAPI wires the full route table over an in-memory database.
func newAPI(t *testing.T) *echo.Echo {
	t.Helper()
	db := dbtest.Open(t)
	tx := mysql.NewGormUoW(db)
	repos := mysql.Repos(db)
	policy := loan.DefaultPolicy()

	e := echo.New()
	e.Validator = NewValidator()
	Register(e, Handlers{
		Health:   NewHandler(nil),
		Loans:    NewLoanHandler(loanUC.NewUsecase(tx, repos, policy, nil), nil),
		Offers:   NewOfferHandler(offerUC.NewUsecase(tx, repos, policy, nil), nil),
		Payments: NewPaymentHandler(paymentUC.NewUsecase(tx, repos, policy, nil, nil), nil),
		Profiles: NewProfileHandler(ledger.NewUsecase(tx, repos, nil), nil),
	}, nil)
	return e
}

// call sends a JSON request as user and decodes the response into out
// when out is non-nil.
func call(t *testing.T, e *echo.Echo, method, path, user, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: bad json %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func TestHealth_ReturnsOKWithRFC3339NanoUTC(t *testing.T) {
	e := echo.New()
	h := NewHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	start := time.Now().UTC()

	if err := h.Health(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	// Status code
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	// Content-Type
	ct := rec.Header().Get(echo.HeaderContentType)
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	// Body JSON
	var body struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v; raw=%s", err, rec.Body.String())
	}

	if body.Status != "ok" {
		t.Fatalf(`expected status "ok", got %q`, body.Status)
	}

	// Time is RFC3339Nano and UTC (with 'Z')
	parsed, err := time.Parse(time.RFC3339Nano, body.Time)
	if err != nil {
		t.Fatalf("time not RFC3339Nano: %v (value=%q)", err, body.Time)
	}
	if parsed.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", parsed.Location())
	}
	// Freshness: should be close to now (within a few seconds)
	now := time.Now().UTC()
	if parsed.Before(start.Add(-2*time.Second)) || parsed.After(now.Add(2*time.Second)) {
		t.Fatalf("time not within expected window: parsed=%v start=%v now=%v", parsed, start, now)
	}
}

func TestHealth_DegradedWhenCheckFails(t *testing.T) {
	h := NewHandler(map[string]Check{
		"mysql": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("dial tcp: connection refused") },
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Status != "degraded" || body.Checks["mysql"] != "ok" || body.Checks["redis"] != "dial tcp: connection refused" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealth_Routed(t *testing.T) {
	rec := call(t, newAPI(t), http.MethodGet, "/health", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
