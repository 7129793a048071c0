package webserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore/internal/app"
)

const AppContextKey = "appctx"

var server *WebServer

// WebServer hosts the admin API.
type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
}

// Init builds the echo server, the JWT-protected /api group and the public
// auth endpoints.
func Init(appCtx app.AppContext) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &WebServer{root: e, appCtx: appCtx}

	e.POST("/auth/login", s.login)

	api := e.Group("/api")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(appCtx.Config().Web.JwtSecret),
	}))
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})
	s.api = api

	server = s
	return s
}

// Get returns the initialized server.
func Get() *WebServer {
	return server
}

func (s *WebServer) Start() error {
	cfg := s.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.L().Info("webserver listening", zap.String("addr", addr))
	return s.root.Start(addr)
}

func (s *WebServer) Shutdown() {
	_ = s.root.Close()
}

// Echo exposes the underlying echo instance (used in tests).
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

// ApiGET registers a GET handler under the protected /api group.
func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

// ApiPOST registers a POST handler under the protected /api group.
func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

// ApiDELETE registers a DELETE handler under the protected /api group.
func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}

// CurrentTenantId extracts the tenant claim from the request token.
func CurrentTenantId(c echo.Context) int64 {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return 0
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0
	}
	return cast.ToInt64(claims["tid"])
}

// CurrentUsername extracts the username claim from the request token.
func CurrentUsername(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	return cast.ToString(claims["uid"])
}

// GetAppContext returns the application context injected by the api group
// middleware.
func GetAppContext(c echo.Context) app.AppContext {
	appCtx, _ := c.Get(AppContextKey).(app.AppContext)
	return appCtx
}

// IssueToken signs an access token for the operator.
func IssueToken(secret, username, level string, tenantId int64, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"uid":   username,
		"level": level,
		"tid":   tenantId,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *WebServer) login(c echo.Context) error {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&payload); err != nil || payload.Username == "" || payload.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"code": "INVALID_REQUEST", "message": "username and password are required",
		})
	}
	operator, err := s.authenticate(payload.Username, payload.Password)
	if err != nil {
		zap.L().Warn("login failed", zap.String("username", payload.Username))
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"code": "AUTH_FAILED", "message": "invalid credentials",
		})
	}
	token, err := IssueToken(s.appCtx.Config().Web.JwtSecret,
		operator.Username, operator.Level, operator.TenantId, 24*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"code": "TOKEN_FAILED", "message": "failed to issue token",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"level": operator.Level,
	})
}
