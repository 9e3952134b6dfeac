package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"gitlab.com/heartbeat-intel/edge-router/internal/logz"
	"gitlab.com/heartbeat-intel/edge-router/pkg/config"
	"gitlab.com/heartbeat-intel/edge-router/pkg/metrics"
	"gitlab.com/heartbeat-intel/edge-router/pkg/route"
	"gitlab.com/heartbeat-intel/edge-router/pkg/upstream"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	opts *Options
}

type Options struct {
	HTTPConfig        config.HTTP
	MetricsConfig     config.Metrics
	LoggingMiddleware func(http.Handler) http.Handler
	Logger            *zap.Logger
	Table             *route.Table
	Origins           *upstream.Set
	Metrics           *metrics.Metrics
}

// New returns an error when the table routes to an origin the set does not hold.
func New(opts *Options) (*Server, error) {
	for _, name := range opts.Table.Origins() {
		if _, err := opts.Origins.Get(name); err != nil {
			return nil, fmt.Errorf("routing table references origin %q: %w", name, err)
		}
	}

	return &Server{
		opts: opts,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r, err := normalizeRequestPath(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.opts.Logger.Info("Could not normalize request path", logz.Error(err), logz.HTTPPath(r.URL.EscapedPath()))
		return
	}

	decision := s.opts.Table.Decide(r.Host, r.URL.EscapedPath())
	s.opts.Metrics.ObserveDecision(decision)

	backend := s.opts.Origins.PassThrough()
	if decision.Action == route.ActionProxy {
		b, err := s.opts.Origins.Get(decision.Origin)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			s.opts.Logger.Error("Routing decision names an unknown origin", logz.Error(err), logz.OriginName(decision.Origin), logz.RuleName(decision.Rule))
			return
		}
		backend = b
	}

	s.opts.Logger.Debug("Routing decision",
		logz.HTTPHost(r.Host),
		logz.HTTPPath(r.URL.Path),
		logz.RoutingAction(string(decision.Action)),
		logz.RoutingReason(string(decision.Reason)),
		logz.RuleName(decision.Rule),
		logz.OriginName(backend.Name),
	)

	backend.ServeHTTP(w, r)
}

// normalizeRequestPath returns r with dot segments removed from its path, so
// the origin is asked for the same path the request was classified on.
func normalizeRequestPath(r *http.Request) (*http.Request, error) {
	escaped := r.URL.EscapedPath()
	normalized := route.NormalizePath(escaped)
	if normalized == escaped {
		return r, nil
	}

	path, err := url.PathUnescape(normalized)
	if err != nil {
		return r, err
	}

	u := *r.URL
	u.Path = path
	u.RawPath = normalized
	out := r.WithContext(r.Context())
	out.URL = &u
	return out, nil
}

// Handler is the edge handler with logging and metrics middleware applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s)
	if s.opts.LoggingMiddleware != nil {
		h = s.opts.LoggingMiddleware(h)
	}
	return s.opts.Metrics.Middleware(h)
}

// AdminHandler serves metrics and health checks. It is never mounted on the
// edge listener so no path is taken away from the origins.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.opts.MetricsConfig.Path, s.opts.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	edge, err := net.Listen("tcp", fmt.Sprintf(":%d", s.opts.HTTPConfig.Port))
	if err != nil {
		return err
	}

	var admin net.Listener
	if s.opts.MetricsConfig.Enabled {
		admin, err = net.Listen("tcp", fmt.Sprintf(":%d", s.opts.MetricsConfig.Port))
		if err != nil {
			_ = edge.Close()
			return err
		}
	}

	return s.Serve(ctx, edge, admin)
}

// Serve runs the edge listener and, when admin is not nil, the admin listener
// until ctx is cancelled or either server fails.
func (s *Server) Serve(ctx context.Context, edge net.Listener, admin net.Listener) error {
	servers := []*http.Server{{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.HTTPConfig.ReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(s.opts.Logger),
	}}
	listeners := []net.Listener{edge}

	if admin != nil {
		servers = append(servers, &http.Server{
			Handler:           s.AdminHandler(),
			ReadHeaderTimeout: s.opts.HTTPConfig.ReadHeaderTimeout,
		})
		listeners = append(listeners, admin)
	}

	eg, groupCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.HTTPConfig.ShutdownTimeout) //nolint:contextcheck
		defer cancel()

		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	s.opts.Logger.Info("Starting edge router...", logz.Port(listenerPort(edge)), logz.RuleCount(len(s.opts.Table.Rules())), logz.MarketingHosts(s.opts.Table.MarketingHosts()))
	if admin != nil {
		s.opts.Logger.Info("Starting admin server...", logz.Port(listenerPort(admin)))
	}

	for i := range servers {
		srv, l := servers[i], listeners[i]
		eg.Go(func() error {
			if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	return eg.Wait()
}

func listenerPort(l net.Listener) int {
	if addr, ok := l.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
