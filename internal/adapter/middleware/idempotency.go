package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"p2p-lending/pkg/id"
)

const (
	// provisionalLockTTL bounds how long a claimed request may run before
	// another attempt with the same id is let through.
	provisionalLockTTL = 60 * time.Second
	// maxClockSkew is the allowed distance between Ax-Request-At and now.
	maxClockSkew = 10 * time.Minute
	storeTimeout = 2 * time.Second
)

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

func reject(c echo.Context, code int, detail string) error {
	return c.JSON(code, map[string]string{"detail": detail})
}

// IdempotencyMiddleware replays the stored response of a mutating request
// that repeats Ax-Request-Id for the same user, method and route. A reused
// id with a different body is a conflict. Server errors are not stored so
// the client may retry them with the same id.
func IdempotencyMiddleware(rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	st := store{rdb: rdb, ttl: ttl}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID := strings.TrimSpace(req.Header.Get("Ax-Request-Id"))
			if reqID == "" {
				return reject(c, http.StatusBadRequest, "missing Ax-Request-Id")
			}
			if !id.Valid(strings.ToLower(reqID)) {
				return reject(c, http.StatusBadRequest, "invalid Ax-Request-Id format")
			}
			now := time.Now().UTC()
			reqAt, err := requestTime(req.Header.Get("Ax-Request-At"), now, maxClockSkew)
			if err != nil {
				return reject(c, http.StatusBadRequest, err.Error())
			}
			userID := strings.TrimSpace(req.Header.Get("Ax-User-Id"))
			if userID == "" {
				return reject(c, http.StatusUnauthorized, "missing Ax-User-Id")
			}
			if len(userID) != 32 || !id.Valid(userID) {
				return reject(c, http.StatusUnauthorized, "invalid Ax-User-Id")
			}

			var body []byte
			if req.Body != nil {
				if body, err = io.ReadAll(req.Body); err != nil {
					log.Debug("request body unreadable", zap.Error(err))
					return reject(c, http.StatusBadRequest, "unreadable request body")
				}
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			digest := bodyDigest(body)

			key := requestKey(req.Method, c.Path(), userID, reqID)
			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			ok, err := st.claim(ctx, key, entry{InProgress: true, BodySHA256: digest, RequestAt: reqAt, StoredAt: now})
			if err != nil {
				log.Warn("idempotency store unavailable", zap.Error(err))
				return reject(c, http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !ok {
				cur, err := st.load(ctx, key)
				if err != nil {
					log.Warn("idempotency entry unreadable", zap.String("key", key), zap.Error(err))
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != digest {
					return reject(c, http.StatusConflict, "Ax-Request-Id reused with different body")
				}
				if cur.replayable() {
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
				return reject(c, http.StatusConflict, "request is already in progress")
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may already be done once the handler returns
			done, cancelDone := context.WithTimeout(context.WithoutCancel(req.Context()), storeTimeout)
			defer cancelDone()
			if rec.code >= http.StatusInternalServerError {
				if err := st.release(done, key); err != nil {
					log.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
				}
				return nil
			}
			final := entry{Code: rec.code, Body: rec.buf.Bytes(), BodySHA256: digest, RequestAt: reqAt, StoredAt: time.Now().UTC()}
			if err := st.finish(done, key, final); err != nil {
				log.Warn("idempotency save failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}
