package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/config"
	"github.com/shinyyama/support-chat/internal/handler"
	"github.com/shinyyama/support-chat/internal/metrics"
	appmw "github.com/shinyyama/support-chat/internal/middleware"
	"github.com/shinyyama/support-chat/internal/realtime"
	"github.com/shinyyama/support-chat/internal/reqctx"
	"github.com/shinyyama/support-chat/internal/repository"
	"github.com/shinyyama/support-chat/internal/service"
	"gorm.io/gorm"
)

type Options struct {
	Config    *config.Config
	DB        *gorm.DB
	Log       zerolog.Logger
	Verifier  appmw.TokenVerifier
	Archiver  service.TranscriptArchiver
	SHA       string
	BuildTime string
}

type Server struct {
	e    *echo.Echo
	hub  *realtime.Hub
	chat service.ChatService
	log  zerolog.Logger
}

func New(opts Options) *Server {
	cfg := opts.Config
	log := opts.Log

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, rid string) {
			c.SetRequest(c.Request().WithContext(reqctx.WithRID(c.Request().Context(), rid)))
		},
	}))
	e.Use(requestLogger(log))
	allowOrigin := originAllowed(cfg.AllowedOrigins, cfg.IsDevelopment())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin,
	}))

	hub := realtime.NewHub(log)
	notifRepo := repository.NewNotificationRepository(opts.DB)
	notifSvc := service.NewNotificationService(notifRepo, hub, log)

	chatOpts := []service.ChatOption{service.WithNotifier(notifSvc)}
	if opts.Archiver != nil {
		chatOpts = append(chatOpts, service.WithArchiver(opts.Archiver))
	}
	chatSvc := service.NewChatService(repository.NewConversationRepository(opts.DB), log, chatOpts...)

	chatHandler := handler.NewChatHandler(chatSvc, hub, log)
	supportHandler := handler.NewSupportHandler(chatSvc, log)
	adminHandler := handler.NewAdminHandler(chatSvc, hub, log)
	notifHandler := handler.NewNotificationHandler(notifSvc, log)
	userHandler := handler.NewUserHandler()
	wsHandler := realtime.NewHandler(hub, chatSvc, func(origin string) bool {
		ok, _ := allowOrigin(origin)
		return ok
	}, cfg.WSSendBuffer)

	authMw := appmw.NewAuthMiddleware(opts.Verifier, log)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    opts.SHA,
			"build_time": opts.BuildTime,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/hubs/support", wsHandler.Serve, authMw.RequireRealtimeAuth)

	api := e.Group("/api", authMw.RequireAuth)
	api.GET("/me", userHandler.Me)
	api.POST("/support/conversation/open", supportHandler.Open)

	admin := api.Group("/admin", authMw.RequireAdmin)
	admin.GET("/inbox", adminHandler.Inbox)
	admin.POST("/conversations/:id/close", adminHandler.Close)

	api.GET("/chat/conversations/:id", chatHandler.GetConversation)
	api.GET("/chat/conversations/:id/messages", chatHandler.ListMessages)
	api.POST("/chat/messages/send", chatHandler.SendMessage)
	api.POST("/chat/conversations/:id/read", chatHandler.MarkRead)

	api.GET("/notifications", notifHandler.List)
	api.GET("/notifications/unread-count", notifHandler.UnreadCount)
	api.POST("/notifications/read-all", notifHandler.MarkAllRead)
	api.POST("/notifications/:id/read", notifHandler.MarkRead)
	api.DELETE("/notifications/:id", notifHandler.Delete)

	return &Server{e: e, hub: hub, chat: chatSvc, log: log}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

func (s *Server) Chat() service.ChatService {
	return s.chat
}

func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("starting server")
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordRequest(v.Method, route, strconv.Itoa(v.Status), v.Latency.Seconds())

			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("rid", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("uid", reqctx.UserID(c.Request().Context())).
				Msg("request")
			return nil
		},
	})
}

// originAllowed accepts configured origins, plus localhost while developing.
func originAllowed(allowed []string, dev bool) func(string) (bool, error) {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(origin string) (bool, error) {
		if _, ok := set[origin]; ok {
			return true, nil
		}
		if !dev {
			return false, nil
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false, nil
		}
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1", nil
	}
}
