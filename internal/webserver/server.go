package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/talkincode/retailhub/internal/app"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var server *AdminServer

type AdminServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
	public map[string]bool
}

// Init builds the global admin server for appCtx
func Init(appCtx app.AppContext) {
	server = NewAdminServer(appCtx)
}

// Start runs the global server until it is shut down
func Start() error {
	return server.Start()
}

// Shutdown stops the global server gracefully
func Shutdown(ctx context.Context) error {
	if server == nil {
		return nil
	}
	return server.root.Shutdown(ctx)
}

// Echo exposes the global echo instance, mainly for httptest
func Echo() *echo.Echo {
	return server.root
}

func NewAdminServer(appCtx app.AppContext) *AdminServer {
	s := &AdminServer{appCtx: appCtx, public: make(map[string]bool)}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &JSONSerializer{}
	e.Validator = &Validator{validate: validator.New()}
	e.HTTPErrorHandler = httpErrorHandler
	if appCtx.Config().System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "http"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				zap.L().Error("request", fields...)
				return nil
			}
			zap.L().Info("request", fields...)
			return nil
		},
	}))

	s.root = e
	s.api = e.Group(apiPrefix,
		appContextMiddleware(appCtx),
		jwtMiddleware(appCtx.Config().Web.Secret, s.isPublic),
		transactionMiddleware(),
	)
	return s
}

func (s *AdminServer) Start() error {
	cfg := s.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.L().Info("admin api server starting", zap.String("addr", addr), zap.String("namespace", "http"))
	s.root.Server.ReadHeaderTimeout = 10 * time.Second
	err := s.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *AdminServer) isPublic(c echo.Context) bool {
	return s.public[c.Request().Method+" "+c.Path()]
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// ApiPublicPOST registers a POST route that does not require a token
func ApiPublicPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.public[http.MethodPost+" "+apiPrefix+path] = true
	server.api.POST(path, h, m...)
}

// JSONSerializer encodes echo payloads with json-iterator
type JSONSerializer struct{}

func (JSONSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (JSONSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}

type Validator struct {
	validate *validator.Validate
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	}
	code := strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	if status >= http.StatusInternalServerError {
		zap.L().Error("unhandled api error", zap.Error(err), zap.String("path", c.Path()), zap.String("namespace", "http"))
		code = "INTERNAL_ERROR"
		message = "Internal server error"
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}
