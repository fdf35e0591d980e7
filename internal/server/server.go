package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// DefaultPort is the port the exporter listens on when none is given.
const DefaultPort = 8010

// shutdownTimeout bounds the drain of in-flight scrapes on shutdown.
const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	// Port is the TCP port to listen on. Defaults to DefaultPort.
	Port int

	// Collector is the prometheus collector to expose on /metrics.
	Collector prometheus.Collector

	// Unchecked registers the collector without Describe verification.
	// Required for collectors whose metric families are only known at
	// collect time.
	Unchecked bool
}

// Server serves the /metrics, /healthz and landing page endpoints.
type Server struct {
	port   int
	router *mux.Router
	log    *logrus.Entry
}

// New creates a Server with the collector registered on a dedicated
// registry, so the exporter's own Go runtime metrics do not mix into the
// scraped device metrics.
func New(opts Options) (*Server, error) {
	if opts.Collector == nil {
		return nil, errors.New("options: Collector is required")
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}

	registry := prometheus.NewRegistry()
	if opts.Unchecked {
		if err := registry.Register(uncheckedCollector{opts.Collector}); err != nil {
			return nil, errors.Wrap(err, "registering collector")
		}
	} else {
		if err := registry.Register(opts.Collector); err != nil {
			return nil, errors.Wrap(err, "registering collector")
		}
	}

	s := &Server{
		port: opts.Port,
		log:  logrus.WithField("component", "server"),
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router = router

	return s, nil
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests for
// up to shutdownTimeout before returning.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.port).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serving metrics")
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return errors.Wrap(err, "draining connections")
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<html>
<head><title>Homematic Exporter</title></head>
<body>
<h1>Homematic Exporter</h1>
<p><a href="/metrics">Metrics</a></p>
</body>
</html>
`)
}

// uncheckedCollector hides the wrapped collector's Describe so the
// registry accepts metric families it has not seen up front.
type uncheckedCollector struct {
	inner prometheus.Collector
}

func (uncheckedCollector) Describe(chan<- *prometheus.Desc) {}

func (u uncheckedCollector) Collect(ch chan<- prometheus.Metric) {
	u.inner.Collect(ch)
}
