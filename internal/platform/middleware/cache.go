package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/cache"
)

// ResponseCachePrefix namespaces response cache keys so they can be dropped
// with InvalidatePattern("response:*").
const ResponseCachePrefix = "response"

// CacheConfig holds HTTP cache header and ETag configuration.
type CacheConfig struct {
	MaxAge       int      // seconds
	Private      bool     // private vs public Cache-Control
	VaryHeaders  []string // default: Accept, Authorization
	ExcludePaths []string
}

// DefaultCacheConfig returns settings for the public endpoints.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge:      30,
		Private:     false,
		VaryHeaders: []string{"Accept", "Authorization"},
	}
}

// CacheStore is the response cache backend. *cache.Cache[[]byte]
// satisfies it.
type CacheStore interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
}

var _ CacheStore = (*cache.Cache[[]byte])(nil)

// bufferedResponseWriter holds the body back so it can be hashed or cached
// before it reaches the client.
type bufferedResponseWriter struct {
	writer     http.ResponseWriter
	buf        *bytes.Buffer
	statusCode int
}

func newBufferedResponseWriter(w http.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{
		writer:     w,
		buf:        &bytes.Buffer{},
		statusCode: http.StatusOK,
	}
}

func (w *bufferedResponseWriter) Header() http.Header { return w.writer.Header() }

func (w *bufferedResponseWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bufferedResponseWriter) WriteHeader(code int) { w.statusCode = code }

func (w *bufferedResponseWriter) Flush() {}

func (w *bufferedResponseWriter) flushTo() error {
	w.writer.WriteHeader(w.statusCode)
	if w.buf.Len() > 0 {
		_, err := w.writer.Write(w.buf.Bytes())
		return err
	}
	return nil
}

// buffer swaps c's writer for a buffer, runs next, and restores the writer.
func buffer(c echo.Context, next echo.HandlerFunc) (*bufferedResponseWriter, http.ResponseWriter, error) {
	res := c.Response()
	orig := res.Writer
	buf := newBufferedResponseWriter(orig)
	res.Writer = buf
	err := next(c)
	res.Writer = orig
	return buf, orig, err
}

// ETagMiddleware sets ETag, Cache-Control and Vary on successful GET/HEAD
// responses and answers a matching If-None-Match with 304.
func ETagMiddleware(config CacheConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			if shouldSkip(req.URL.Path, config.ExcludePaths) {
				return next(c)
			}

			buf, orig, err := buffer(c, next)
			if err != nil {
				return err
			}
			if buf.statusCode >= 400 {
				return buf.flushTo()
			}

			h := c.Response().Header()
			h.Set("Cache-Control", buildCacheControl(config))
			if len(config.VaryHeaders) > 0 {
				h.Set("Vary", strings.Join(config.VaryHeaders, ", "))
			}
			etag := computeETag(buf.buf.Bytes())
			h.Set("ETag", etag)

			if inm := req.Header.Get("If-None-Match"); inm != "" && etagMatch(inm, etag) {
				orig.WriteHeader(http.StatusNotModified)
				return nil
			}
			return buf.flushTo()
		}
	}
}

// ResponseCacheMiddleware caches successful anonymous GET responses for ttl.
// Requests with an Authorization header bypass the cache.
func ResponseCacheMiddleware(store CacheStore, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}
			res := c.Response()
			if req.Header.Get("Authorization") != "" {
				res.Header().Set("X-Cache", "SKIP")
				return next(c)
			}

			key := ResponseCacheKey(req)
			if data, ok := store.Get(key); ok {
				contentType, body := decodeCached(data)
				if contentType != "" {
					res.Header().Set(echo.HeaderContentType, contentType)
				}
				res.Header().Set("X-Cache", "HIT")
				res.Writer.WriteHeader(http.StatusOK)
				_, err := res.Writer.Write(body)
				return err
			}

			buf, _, err := buffer(c, next)
			if err != nil {
				return err
			}
			if buf.statusCode == http.StatusOK {
				store.Set(key, encodeCached(res.Header().Get(echo.HeaderContentType), buf.buf.Bytes()), ttl)
			}
			res.Header().Set("X-Cache", "MISS")
			return buf.flushTo()
		}
	}
}

// ResponseCacheKey derives the cache key for req from its path, raw query
// and Accept header.
func ResponseCacheKey(req *http.Request) string {
	return cache.GenerateKey(ResponseCachePrefix, map[string]string{
		"path":   req.URL.Path,
		"query":  req.URL.RawQuery,
		"accept": req.Header.Get("Accept"),
	})
}

// Cached values are "<content-type>\n<body>".
func encodeCached(contentType string, body []byte) []byte {
	out := make([]byte, 0, len(contentType)+1+len(body))
	out = append(out, contentType...)
	out = append(out, '\n')
	return append(out, body...)
}

func decodeCached(data []byte) (string, []byte) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return "", data
	}
	return string(data[:i]), data[i+1:]
}

// computeETag returns a weak ETag over the body.
func computeETag(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf(`W/"%x"`, sum[:16])
}

func shouldSkip(path string, excludes []string) bool {
	for _, ex := range excludes {
		if path == ex {
			return true
		}
	}
	return false
}

func buildCacheControl(config CacheConfig) string {
	scope := "public"
	if config.Private {
		scope = "private"
	}
	return fmt.Sprintf("%s, max-age=%d", scope, config.MaxAge)
}

// etagMatch compares an If-None-Match value against etag using weak
// comparison. Supports lists and "*".
func etagMatch(headerVal, etag string) bool {
	headerVal = strings.TrimSpace(headerVal)
	if headerVal == "*" {
		return true
	}
	for _, candidate := range strings.Split(headerVal, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}
