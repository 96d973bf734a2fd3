package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	CookieName = "pk_session"
	ctxKey     = "session"
)

type Options struct {
	TTL    time.Duration
	Secure bool
}

// Middleware loads the session named by the cookie (or starts a new one),
// exposes it through FromContext, and persists changes after the handler.
// The handler's response is held back until the session is saved, so a
// client is never told a step succeeded when its state was lost.
func Middleware(store Store, opts Options, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "session")

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var sess *Session
		if id, err := c.Cookie(CookieName); err == nil && id != "" {
			loaded, err := store.Load(ctx, id)
			switch {
			case err == nil:
				sess = loaded
			case !errors.Is(err, ErrNotFound):
				logger.ErrorContext(ctx, "load session", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		}
		if sess == nil {
			sess = New()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, sess.ID, int(opts.TTL.Seconds()), "/", "", opts.Secure, true)
		c.Set(ctxKey, sess)

		buf := newBufferedWriter(c.Writer)
		c.Writer = buf
		c.Next()
		c.Writer = buf.ResponseWriter

		switch {
		case sess.Destroyed():
			if err := store.Delete(ctx, sess.ID); err != nil {
				logger.ErrorContext(ctx, "delete session", "error", err)
			}
		case sess.Dirty():
			if err := store.Save(ctx, sess, opts.TTL); err != nil {
				logger.ErrorContext(ctx, "save session", "error", err)
				c.Writer.Header().Del("Content-Type")
				c.Writer.Header().Del("Retry-After")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		}
		buf.flush()
	}
}

// FromContext returns the request's session. Handlers mounted behind
// Middleware always get a non-nil session.
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(ctxKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return New()
}
