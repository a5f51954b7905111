package webserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/retailhub/config"
	"github.com/talkincode/retailhub/internal/app"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/testutil"
	"github.com/talkincode/retailhub/pkg/common"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServer(t *testing.T) *app.Application {
	cfg := config.DefaultAppConfig()
	cfg.Web.Secret = "test-secret"
	a := app.NewApplication(cfg)
	a.OverrideDB(testutil.NewDB(t))
	Init(a)
	return a
}

func doRequest(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	Echo().ServeHTTP(rec, req)
	return rec
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	setupServer(t)
	ApiPublicPOST("/open", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	ApiGET("/whoami", func(c echo.Context) error {
		claims, ok := CurrentClaims(c)
		if !ok {
			return c.NoContent(http.StatusUnauthorized)
		}
		return c.String(http.StatusOK, claims.Username+":"+claims.Type)
	})

	assert.Equal(t, http.StatusNoContent, doRequest(http.MethodPost, "/api/v1/open", "", "").Code)

	rec := doRequest(http.MethodGet, "/api/v1/whoami", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")

	token, expire, err := CreateToken("test-secret", 42, "bob", domain.UserTypeBuyer, time.Hour)
	require.NoError(t, err)
	assert.True(t, expire.After(time.Now()))

	rec = doRequest(http.MethodGet, "/api/v1/whoami", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob:buyer", rec.Body.String())

	bad, _, err := CreateToken("other-secret", 42, "bob", domain.UserTypeBuyer, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(http.MethodGet, "/api/v1/whoami", "", bad).Code)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	a := setupServer(t)
	var hookRuns int
	ApiPublicPOST("/categories/:name", func(c echo.Context) error {
		cat := domain.Category{ID: common.UUIDint64(), Name: c.Param("name")}
		if err := GetDB(c).Create(&cat).Error; err != nil {
			return err
		}
		AfterCommit(c, func() { hookRuns++ })
		if strings.HasPrefix(cat.Name, "bad") {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_REQUEST"})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"data": cat})
	})

	assert.Equal(t, http.StatusOK, doRequest(http.MethodPost, "/api/v1/categories/good", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(http.MethodPost, "/api/v1/categories/bad", "", "").Code)

	assert.EqualValues(t, 1, testutil.Count(t, a.DB(), &domain.Category{}, "name = ?", "good"))
	assert.EqualValues(t, 0, testutil.Count(t, a.DB(), &domain.Category{}, "name = ?", "bad"))
	assert.Equal(t, 1, hookRuns)
}

var errCommitRefused = errors.New("commit refused")

// rejectingPool opens transactions whose commit always fails after rolling back
type rejectingPool struct {
	*sql.DB
}

func (p rejectingPool) BeginTx(ctx context.Context, opts *sql.TxOptions) (gorm.ConnPool, error) {
	tx, err := p.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &rejectingTx{Tx: tx}, nil
}

type rejectingTx struct {
	*sql.Tx
}

func (t *rejectingTx) Commit() error {
	_ = t.Tx.Rollback()
	return errCommitRefused
}

func TestCommitFailureIsNotReportedAsSuccess(t *testing.T) {
	a := setupServer(t)
	base := a.DB()
	sqlDB, err := base.DB()
	require.NoError(t, err)
	failing, err := gorm.Open(sqlite.Dialector{Conn: rejectingPool{DB: sqlDB}}, &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	a.OverrideDB(failing)

	var hookRuns int
	ApiPublicPOST("/categories/:name", func(c echo.Context) error {
		cat := domain.Category{ID: common.UUIDint64(), Name: c.Param("name")}
		if err := GetDB(c).Create(&cat).Error; err != nil {
			return err
		}
		AfterCommit(c, func() { hookRuns++ })
		return c.JSON(http.StatusCreated, map[string]interface{}{"data": cat})
	})

	rec := doRequest(http.MethodPost, "/api/v1/categories/lost", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"DATABASE_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "lost")
	assert.Equal(t, 0, hookRuns)
	assert.EqualValues(t, 0, testutil.Count(t, base, &domain.Category{}))
}

func TestHandlerErrorRendersJSON(t *testing.T) {
	setupServer(t)
	ApiPublicPOST("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "broken payload")
	})

	rec := doRequest(http.MethodPost, "/api/v1/boom", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"BAD_REQUEST"`)
	assert.Contains(t, rec.Body.String(), "broken payload")

	rec = doRequest(http.MethodGet, "/api/v1/nowhere", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
