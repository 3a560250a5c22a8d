package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	byujwt "github.com/byu-oit/byu-jwt-go"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP server that echoes the authenticated caller",
		Long: "Run an HTTP server. GET /whoami answers with the authenticated caller, " +
			"/metrics serves Prometheus metrics and /healthz always answers 200.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			auth, err := opts.authenticator(byujwt.WithMetrics(byujwt.NewPrometheusMetrics(registry)))
			if err != nil {
				return err
			}
			defer auth.Close()

			router, err := newRouter(auth, registry)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				opts.logger.WithField("addr", addr).Info("listening")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// newRouter mounts /whoami behind the JWT middleware next to the public
// /healthz and /metrics endpoints.
func newRouter(auth *byujwt.Authenticator, gatherer prometheus.Gatherer) (http.Handler, error) {
	jwtMiddleware, err := byujwt.NewMiddleware(auth)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(jwtMiddleware.CheckJWT)
		r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
			result := byujwt.MustGetResult(r.Context())
			w.Header().Set("Content-Type", "application/json")
			_ = writeJSON(w, result)
		})
	})

	return r, nil
}
