package webserver

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/retailhub/internal/app"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	appContextKey  = "appctx"
	TxKey          = "gormtx"
	afterCommitKey = "aftercommit"
)

var errRollback = errors.New("rollback request transaction")

func appContextMiddleware(appCtx app.AppContext) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, appCtx)
			return next(c)
		}
	}
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appContextKey).(app.AppContext)
}

// GetDB returns the request transaction, or a plain session for read-only requests
func GetDB(c echo.Context) *gorm.DB {
	if tx, ok := c.Get(TxKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

// AfterCommit schedules fn to run once the request transaction has committed.
// Outside a transaction fn runs immediately.
func AfterCommit(c echo.Context, fn func()) {
	if _, ok := c.Get(TxKey).(*gorm.DB); !ok {
		fn()
		return
	}
	hooks, _ := c.Get(afterCommitKey).([]func())
	c.Set(afterCommitKey, append(hooks, fn))
}

// transactionMiddleware wraps every mutating request in one database transaction.
// The transaction rolls back when the handler returns an error or writes a status >= 400.
// The response is held back until the commit succeeded; a failed commit is answered
// with 500 DATABASE_ERROR instead.
func transactionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			resp := c.Response()
			origin := resp.Writer
			buf := newBufferedWriter(origin.Header())
			resp.Writer = buf

			var handlerErr error
			db := GetAppContext(c).DB().WithContext(c.Request().Context())
			txErr := db.Transaction(func(tx *gorm.DB) error {
				c.Set(TxKey, tx)
				handlerErr = next(c)
				if handlerErr != nil || resp.Status >= http.StatusBadRequest {
					return errRollback
				}
				return nil
			})
			c.Set(TxKey, nil)
			resp.Writer = origin

			if txErr != nil && !errors.Is(txErr, errRollback) && handlerErr == nil {
				zap.L().Error("request transaction failed",
					zap.String("path", c.Path()), zap.Error(txErr), zap.String("namespace", "http"))
				resp.Committed = false
				resp.Size = 0
				return c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"error":   "DATABASE_ERROR",
					"message": "Failed to commit transaction",
				})
			}

			if resp.Committed {
				if err := buf.flushTo(origin); err != nil {
					zap.L().Warn("write response failed", zap.Error(err), zap.String("namespace", "http"))
				}
			}
			if handlerErr != nil {
				return handlerErr
			}
			if txErr != nil {
				return nil
			}

			hooks, _ := c.Get(afterCommitKey).([]func())
			for _, fn := range hooks {
				fn()
			}
			return nil
		}
	}
}

// bufferedWriter keeps the status, headers and body of a response in memory
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter(base http.Header) *bufferedWriter {
	return &bufferedWriter{header: base.Clone()}
}

func (w *bufferedWriter) Header() http.Header {
	return w.header
}

func (w *bufferedWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *bufferedWriter) flushTo(dst http.ResponseWriter) error {
	h := dst.Header()
	for k, v := range w.header {
		h[k] = v
	}
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	dst.WriteHeader(status)
	_, err := dst.Write(w.body.Bytes())
	return err
}
