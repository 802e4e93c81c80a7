package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/cache"
)

// CacheHeader reports HIT or MISS on cached routes.
const CacheHeader = "X-Cache"

// CachePage serves GET and HEAD responses from pc for ttl.
//
// The key is the request URI plus the viewer's user ID, so a signed-in
// page is never shown to someone else. Only 200 responses are stored; a
// cached body is replayed byte for byte, along with its Content-Type,
// until the entry expires or the cache is cleared.
//
// A cache backend error is logged and the request is served uncached.
// OptionalAuth must run first.
func CachePage(pc cache.PageCache, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (r.Method != http.MethodGet && r.Method != http.MethodHead) || ttl <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := pageKey(r)

			body, ok, err := pc.Get(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "page cache read failed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
			if ok {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set(CacheHeader, "HIT")
				w.WriteHeader(http.StatusOK)
				if r.Method != http.MethodHead {
					_, _ = w.Write(body)
				}
				return
			}

			rec := &recorder{header: http.Header{}, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status == http.StatusOK && r.Method == http.MethodGet {
				if err := pc.Set(ctx, key, rec.body.Bytes(), ttl); err != nil {
					logger.WarnContext(ctx, "page cache write failed",
						slog.String("key", key),
						slog.String("error", err.Error()),
					)
				}
			}

			for k, v := range rec.header {
				w.Header()[k] = v
			}
			w.Header().Set(CacheHeader, "MISS")
			w.WriteHeader(rec.status)
			_, _ = rec.body.WriteTo(w)
		})
	}
}

func pageKey(r *http.Request) string {
	userID, _ := auth.UserIDFromContext(r.Context())
	return r.URL.RequestURI() + "|" + userID
}

// recorder buffers a response so it can be stored before it is sent.
type recorder struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (rec *recorder) Header() http.Header {
	return rec.header
}

func (rec *recorder) WriteHeader(code int) {
	if rec.wroteHeader {
		return
	}
	rec.status = code
	rec.wroteHeader = true
}

func (rec *recorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	return rec.body.Write(b)
}
