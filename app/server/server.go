package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"docchunker/app/api"
	"docchunker/app/middleware"
	"docchunker/config"
	"docchunker/service"
	"docchunker/store"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	listenAddr string
	logger     *slog.Logger
	app        *fiber.App
}

func NewServer(cfg config.Config, svc *service.Service, files *store.FileStore, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler:          api.NewErrorHandler(logger),
		BodyLimit:             cfg.MaxUploadBytes,
		DisableStartupMessage: true,
	})

	var (
		checkHandler    = api.NewCheckHandler()
		documentHandler = api.NewDocumentHandler(svc, files, cfg.Chunking)
		chatHandler     = api.NewChatHandler(svc)
		sessionHandler  = api.NewSessionHandler(svc)
	)

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))

	check := app.Group("/check")
	check.Get("/healthy", checkHandler.HandleHealthy)

	app.Post("/upload", documentHandler.HandleUpload)
	app.Get("/chunks/:fileId", documentHandler.HandleGetChunks)
	app.Get("/documents", documentHandler.HandleGetDocuments)
	app.Delete("/documents/:fileId", documentHandler.HandleDeleteDocument)
	app.Get("/export/:fileId", documentHandler.HandleExport)

	app.Post("/chat", chatHandler.HandleChat)

	sessions := app.Group("/sessions/:sessionId")
	sessions.Get("/", sessionHandler.HandleGetSession)
	sessions.Put("/document", sessionHandler.HandleView)
	sessions.Post("/selection", sessionHandler.HandleSelect)
	sessions.Post("/selection/all", sessionHandler.HandleSelectAll)
	sessions.Get("/messages", sessionHandler.HandleGetMessages)

	app.Static("/uploads", files.Dir())
	app.Use(middleware.PlugStatic("/"))
	app.Static("/", cfg.PublicDir)

	return &Server{
		listenAddr: cfg.ServerAddr,
		logger:     logger,
		app:        app,
	}
}

// App exposes the underlying Fiber application for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run blocks until the listener fails or Stop is called.
func (s *Server) Run() error {
	s.logger.Info("server listening", "addr", s.listenAddr)
	return s.app.Listen(s.listenAddr)
}

func (s *Server) Stop(ctx context.Context) error {
	timeout := shutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := s.app.ShutdownWithTimeout(timeout); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
