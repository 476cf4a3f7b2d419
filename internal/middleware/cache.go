package middleware

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

type ResponseCacheConfig struct {
	TTL      time.Duration
	Prefixes []string
}

// ResponseCache memoizes GET responses on the configured path prefixes
// for a short TTL. Any successful write request flushes the whole
// cache, so dashboards never serve stale rows after a booking or a
// payment lands.
type ResponseCache struct {
	store    *gocache.Cache
	prefixes []string
}

func NewResponseCache(config ResponseCacheConfig) *ResponseCache {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Second
	}
	return &ResponseCache{
		store:    gocache.New(config.TTL, time.Minute),
		prefixes: config.Prefixes,
	}
}

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (rc *ResponseCache) cacheable(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet {
		return false
	}
	for _, p := range rc.prefixes {
		if strings.HasPrefix(c.Request.URL.Path, p) {
			return true
		}
	}
	return false
}

func (rc *ResponseCache) key(c *gin.Context) string {
	role, _ := RoleFrom(c)
	return string(role) + "|" + c.Request.URL.RequestURI()
}

func (rc *ResponseCache) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rc.cacheable(c) {
			c.Next()
			if c.Request.Method != http.MethodGet && c.Writer.Status() < 400 {
				rc.store.Flush()
			}
			return
		}

		key := rc.key(c)
		if v, ok := rc.store.Get(key); ok {
			cached := v.(cachedResponse)
			c.Data(cached.status, cached.contentType, cached.body)
			c.Abort()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			rc.store.SetDefault(key, cachedResponse{
				status:      c.Writer.Status(),
				contentType: c.Writer.Header().Get("Content-Type"),
				body:        w.body.Bytes(),
			})
		}
	}
}
