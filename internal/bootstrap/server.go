package bootstrap

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	app "github.com/mohammadpnp/user-directory/internal/application/user"
	"github.com/mohammadpnp/user-directory/internal/config"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/repository"
	httpecho "github.com/mohammadpnp/user-directory/internal/interfaces/http/echo"
)

func (a *App) NewHTTPServer() *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.HidePort = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(requestLogger(a.Log))
	server.Use(echo.WrapMiddleware(corsHandler(a.Config.HTTP)))
	server.Use(middleware.BodyLimit(a.Config.HTTP.BodyLimit))

	userRepo := repository.NewUserRepository(a.DB)

	var uploads interface{ UploadAccepted() }
	if a.Metrics != nil {
		uploads = a.Metrics
	}

	importHandler := httpecho.NewImportHandler(
		app.NewStartSpreadsheetImport(a.Staging, a.Jobs),
		app.NewGetImportJob(a.Jobs),
		uploads,
	)
	userHandler := httpecho.NewUserHandler(
		app.NewListUsers(userRepo),
		app.NewUpdateUsersBatch(userRepo),
	)
	systemHandler := httpecho.NewSystemHandler(app.NewCheckStoreConnection(userRepo))

	httpecho.RegisterRoutes(server, importHandler, userHandler, systemHandler)

	if a.Config.Metrics.Enabled {
		server.GET(a.Config.Metrics.Path, echo.WrapHandler(promhttp.Handler()))
	}

	return server
}

func corsHandler(cfg config.HTTPConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	})
}
