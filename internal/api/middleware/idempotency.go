package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayo6706/wheelbet/internal/api/problem"
	"github.com/ayo6706/wheelbet/internal/idempotency"
	"github.com/ayo6706/wheelbet/internal/observability"
	"go.uber.org/zap"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	replayHeader            = "X-Idempotent-Replay"
	maxIdempotencyKeyLength = 255
)

// IdempotencyMiddleware makes a mutating request safe to retry. The first
// request with a key runs and its response is stored; later requests with
// the same key and body get the stored response. Keys are scoped to the
// authenticated account.
func IdempotencyMiddleware(store *idempotency.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &idempotencyGuard{store: store, logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next)
		})
	}
}

type idempotencyGuard struct {
	store  *idempotency.Store
	logger *zap.Logger
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	switch {
	case clientKey == "":
		observability.IncrementIdempotencyEvent("missing_key")
		problem.Write(w, r, http.StatusBadRequest, problem.Type("idempotency/missing-key"), "", "Idempotency-Key header is required")
		return
	case len(clientKey) > maxIdempotencyKeyLength:
		problem.Write(w, r, http.StatusBadRequest, problem.Type("idempotency/invalid-key"), "", "Idempotency-Key is too long")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("request/invalid-body"), "", "Failed to read request body")
		return
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	key := scopedKey(r, clientKey)
	hash := hashRequest(r.Method, r.URL.Path, body)
	ctx := r.Context()

	rec, err := g.store.Lookup(ctx, key, hash)
	switch {
	case err == nil:
		observability.IncrementIdempotencyEvent("replay")
		replay(w, rec)
		return
	case errors.Is(err, idempotency.ErrHashMismatch):
		observability.IncrementIdempotencyEvent("hash_mismatch")
		problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/key-conflict"), "", "Idempotency-Key was reused with a different request")
		return
	case errors.Is(err, idempotency.ErrInProgress):
		g.awaitReplay(w, r, key, hash)
		return
	case !errors.Is(err, idempotency.ErrNotFound):
		observability.IncrementIdempotencyEvent("lookup_error")
		g.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
	}

	reserved, err := g.store.Reserve(ctx, key, hash, r.Method, r.URL.Path)
	if err != nil {
		observability.IncrementIdempotencyEvent("reserve_error")
		g.logger.Error("idempotency reserve failed", zap.String("key", key), zap.Error(err))
		problem.Write(w, r, http.StatusInternalServerError, problem.Type("idempotency/unavailable"), "", "idempotency unavailable")
		return
	}
	if !reserved {
		// Lost the race to a concurrent request with the same key.
		g.awaitReplay(w, r, key, hash)
		return
	}
	observability.IncrementIdempotencyEvent("reserved")

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	contentType := capture.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	// The response is already on the wire; record it even if the client left.
	if _, err := g.store.Finalize(context.WithoutCancel(ctx), key, hash, capture.statusCode(), capture.body.Bytes(), contentType); err != nil {
		observability.IncrementIdempotencyEvent("finalize_error")
		g.logger.Warn("idempotency finalize failed", zap.String("key", key), zap.Error(err))
		return
	}
	observability.IncrementIdempotencyEvent("finalized")
}

// awaitReplay waits for the request holding key to finish and replays its
// response, or answers 409 if it does not finish in time.
func (g *idempotencyGuard) awaitReplay(w http.ResponseWriter, r *http.Request, key, hash string) {
	rec, err := g.store.WaitForCompletion(r.Context(), key, hash)
	if err == nil {
		observability.IncrementIdempotencyEvent("replay_after_wait")
		replay(w, rec)
		return
	}
	observability.IncrementIdempotencyEvent("in_progress_conflict")
	g.logger.Warn("idempotency wait failed", zap.String("key", key), zap.Error(err))
	problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/in-progress"), "", "a request with this Idempotency-Key is still being processed")
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func scopedKey(r *http.Request, clientKey string) string {
	if id, ok := AccountIDFromContext(r.Context()); ok {
		return id.String() + ":" + clientKey
	}
	return "anonymous:" + clientKey
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + "|" + path + "|"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// responseCapture tees the handler's response so it can be stored.
type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func replay(w http.ResponseWriter, rec *idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set(replayHeader, rec.ServedBy)
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}
