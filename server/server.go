// a stupid package name...
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/marcopiovanello/yt-dlp-remote/server/archiver"
	"github.com/marcopiovanello/yt-dlp-remote/server/config"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/kv"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/session"
	"github.com/marcopiovanello/yt-dlp-remote/server/logging"
	"github.com/marcopiovanello/yt-dlp-remote/server/rest"
	"github.com/marcopiovanello/yt-dlp-remote/server/stream"
	"github.com/marcopiovanello/yt-dlp-remote/server/user"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App holds everything a front-end needs to drive downloads.
type App struct {
	Bus        EventBus.Bus
	Controller *session.Controller
	Session    *kv.Store
	Archive    *archiver.Archiver
}

func NewApp() (*App, error) {
	conf := config.Instance()

	sessionStore, err := kv.Open(conf.SessionDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	archive, err := archiver.Open(conf.ArchiveDBPath())
	if err != nil {
		sessionStore.Close()
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	bus := EventBus.New()

	if err := archive.Register(bus); err != nil {
		sessionStore.Close()
		archive.Close()
		return nil, err
	}

	ctrl := session.NewController(bus, sessionStore, session.DefaultFactory)
	if err := ctrl.Restore(); err != nil {
		slog.Warn("failed to restore paused download", slog.Any("err", err))
	}

	return &App{
		Bus:        bus,
		Controller: ctrl,
		Session:    sessionStore,
		Archive:    archive,
	}, nil
}

// Close stops any active run and releases the stores.
func (a *App) Close(ctx context.Context) error {
	err := a.Controller.Shutdown(ctx)

	// pending archive writes
	a.Bus.WaitAsync()

	return errors.Join(err, a.Archive.Close(), a.Session.Close())
}

// SetupLogging installs the default slog logger. A nil console only logs to
// file, when file logging is enabled.
func SetupLogging(ctx context.Context, console io.Writer) (func(), error) {
	conf := config.Instance()

	var logWriters []io.Writer
	if console != nil {
		logWriters = append(logWriters, console)
	}

	cleanup := func() {}

	// file based logging
	if conf.Logging.EnableFileLogging {
		logger, err := logging.NewRotableLogger(conf.Logging.LogPath)
		if err != nil {
			return nil, err
		}

		go func() {
			ticker := time.NewTicker(time.Hour * 24)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := logger.Rotate(); err != nil {
						slog.Error("failed to rotate log file", slog.Any("err", err))
					}
				}
			}
		}()

		cleanup = func() { logger.Close() }
		logWriters = append(logWriters, logger)
	}

	if len(logWriters) == 0 {
		logWriters = append(logWriters, io.Discard)
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(logWriters...), &slog.HandlerOptions{
		Level: logging.ParseLevel(conf.Logging.Level),
	}))

	// make the new logger the default one with all the new writers
	slog.SetDefault(logger)

	return cleanup, nil
}

func Run(ctx context.Context, console io.Writer) error {
	if err := config.Instance().Validate(); err != nil {
		return err
	}

	cleanup, err := SetupLogging(ctx, console)
	if err != nil {
		return err
	}
	defer cleanup()

	app, err := NewApp()
	if err != nil {
		return err
	}

	hub := stream.NewHub(app.Controller)
	if err := hub.Register(app.Bus); err != nil {
		app.Close(context.Background())
		return err
	}

	srv := newServer(app, hub)

	conf := config.Instance()

	var (
		network = "tcp"
		address = fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
	)

	// support unix sockets
	if strings.HasPrefix(conf.Server.Host, "/") {
		network = "unix"
		address = conf.Server.Host
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		slog.Error("failed to listen", slog.String("err", err.Error()))
		app.Close(context.Background())
		return err
	}

	slog.Info("yt-dlp-remote started", slog.String("address", address))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// no request may reach the controller once it is closed
		serr := srv.Shutdown(sctx)
		return errors.Join(serr, app.Close(sctx))
	})

	return g.Wait()
}

func newServer(app *App, hub *stream.Hub) *http.Server {
	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.Use(corsMiddleware.Handler)

	baseUrl := config.Instance().Server.BaseURL

	r.Route(baseUrl+"/", func(r chi.Router) {
		// Authentication routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", user.Login)
			r.Get("/logout", user.Logout)
		})

		// REST API handlers
		r.Route("/api/v1", rest.ApplyRouter(&rest.ContainerArgs{
			Controller: app.Controller,
			History:    app.Archive,
		}))

		// Push updates
		r.Route("/stream", stream.ApplyRouter(hub))
	})

	return &http.Server{Handler: r}
}
