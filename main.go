package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"
	"whiteboard-server/board"
	"whiteboard-server/core"
	"whiteboard-server/handlers/api/snapshots"
	"whiteboard-server/handlers/api/whiteboard"
	"whiteboard-server/handlers/websocket"
	authMiddleware "whiteboard-server/middleware"
	"whiteboard-server/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

//go:embed frontend/index.html
var assets embed.FS

func handleUI() http.HandlerFunc {
	page, err := assets.ReadFile("frontend/index.html")
	if err != nil {
		panic(err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(page); err != nil {
			logrus.WithField("error", err).Warn("Failed to serve UI")
		}
	}
}

func setupRouter(b *board.Board, hub *websocket.Hub, secret []byte) *chi.Mux {
	var notifier whiteboard.Notifier
	if hub != nil {
		notifier = hub
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	corsOptions := cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "" {
				return false
			}

			parsed, err := url.Parse(origin)
			if err != nil {
				return false
			}

			switch parsed.Scheme {
			case "http", "https":
				switch parsed.Hostname() {
				case "localhost", "127.0.0.1", "::1":
					return true
				}
			}

			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	r.Use(cors.Handler(corsOptions))

	r.Route("/api/board", func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT(secret))

		r.Get("/", whiteboard.HandleGetState(b))
		r.Get("/frame", whiteboard.HandleGetFrame(b))
		r.Get("/export", whiteboard.HandleExport(b))
		r.Post("/pointer", whiteboard.HandlePointer(b, notifier))
		r.Post("/actions/{action}", whiteboard.HandleAction(b, notifier))
		r.Put("/viewport", whiteboard.HandleViewport(b, notifier))

		r.Route("/history", func(r chi.Router) {
			r.Get("/", snapshots.HandleListSnapshots(b))
			r.Get("/{snapshotId}", snapshots.HandleGetSnapshot(b))
		})
	})

	// Socket events drive the same board, so the handshake and every
	// polling or upgrade request carries the same bearer token.
	if hub != nil {
		r.With(authMiddleware.AuthJWT(secret)).Handle("/socket.io/", hub.Server().ServeHandler(nil))
	}

	r.Get("/", handleUI())

	return r
}

func waitForShutdown(srv *http.Server, ioo *socketio.Server, store core.KeyValueStore) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	s := <-signalC
	logrus.WithField("signal", s).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithField("error", err).Warn("Failed to shut down http server")
	}
	ioo.Close(nil)

	switch closer := store.(type) {
	case io.Closer:
		if err := closer.Close(); err != nil {
			logrus.WithField("error", err).Warn("Failed to close storage")
		}
	case interface{ Close(context.Context) error }:
		if err := closer.Close(ctx); err != nil {
			logrus.WithField("error", err).Warn("Failed to close storage")
		}
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddr := flag.String("listen", ":3002", "Set the server listen address")
	logLevel := flag.String("loglevel", "info", "Set the logging level: debug, info, warn, error, fatal, panic")
	width := flag.Int("width", 840, "Initial width of the canvas container in pixels")
	height := flag.Int("height", 640, "Initial height of the canvas container in pixels")
	historyLimit := flag.Int("history-limit", 0, "Maximum number of undo snapshots to keep, 0 for no limit")
	namespace := flag.String("namespace", "", "Prefix for the persisted keys")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	ctx := context.Background()
	store := stores.GetStore(ctx)
	b := board.Open(ctx, store, board.Config{
		Namespace:    *namespace,
		HistoryLimit: *historyLimit,
		Width:        *width,
		Height:       *height,
	})

	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		logrus.Warn("JWT_SECRET not set, board API is open")
	}

	hub := websocket.SetupSocketIO(b)
	r := setupRouter(b, hub, secret)

	srv := &http.Server{Addr: *listenAddr, Handler: r}
	logrus.WithField("addr", *listenAddr).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(srv, hub.Server(), store)
}
