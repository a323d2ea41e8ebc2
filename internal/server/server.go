// Package server exposes the wizard over HTTP. Every session is isolated:
// requests for one session are serialized, different sessions run in parallel.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jywlabs/scriptwiz/internal/catalog"
	"github.com/jywlabs/scriptwiz/internal/config"
	"github.com/jywlabs/scriptwiz/internal/llm"
	"github.com/jywlabs/scriptwiz/internal/pipeline"
	"github.com/jywlabs/scriptwiz/internal/session"
	"github.com/jywlabs/scriptwiz/internal/storage"
)

// Options configures a Server.
type Options struct {
	Config      *config.Config
	PromptsPath string
	Loader      *catalog.Loader
	Store       storage.Store
	Invoker     llm.Invoker

	// Registry receives the server's metrics. A new registry is created when nil.
	Registry *prometheus.Registry
}

// Server serves the wizard API.
type Server struct {
	cfg         *config.Config
	promptsPath string
	loader      *catalog.Loader
	store       storage.Store
	invoker     llm.Invoker
	registry    *prometheus.Registry

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes requests for one session. refs counts holders and
// waiters so idle entries can be dropped.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a server. The invoker is wrapped with metrics and, when a rate
// limit is configured, a limiter shared by all sessions.
func New(opts Options) *Server {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	loader := opts.Loader
	if loader == nil {
		loader = catalog.NewLoader()
	}

	inv := opts.Invoker
	if opts.Config.Server.RateLimit > 0 {
		burst := opts.Config.Server.Burst
		if burst < 1 {
			burst = 1
		}
		inv = llm.Throttle(inv, rate.NewLimiter(rate.Limit(opts.Config.Server.RateLimit), burst))
	}
	inv = llm.Instrument(inv, llm.NewMetrics(reg))

	return &Server{
		cfg:         opts.Config,
		promptsPath: opts.PromptsPath,
		loader:      loader,
		store:       opts.Store,
		invoker:     inv,
		registry:    reg,
		locks:       make(map[string]*sessionLock),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/sessions", s.handleCreateSession)

	sess := r.Group("/sessions/:id")
	sess.GET("", s.withSession(getSession))
	sess.GET("/status", s.withSession(getStatus))
	sess.GET("/requests/:task", s.withSession(getRequest))
	sess.POST("/confirm/:stage", s.withSession(confirmStage))
	sess.DELETE("/project", s.withSession(resetProject))

	sess.PUT("/config", s.withSession(configure))

	sess.POST("/outline", s.withSession(generateOutline))
	sess.PUT("/outline", s.withSession(setOutline))
	sess.POST("/outline/score", s.withSession(scoreOutline))

	sess.POST("/script", s.withSession(generateScript))
	sess.PUT("/script", s.withSession(setScript))
	sess.POST("/script/score", s.withSession(scoreScript))

	sess.POST("/storyboard", s.withSession(generateStoryboard))
	sess.PUT("/storyboard", s.withSession(setStoryboard))
	sess.GET("/storyboard/export", s.withSession(exportStoryboard))

	sess.POST("/metadata", s.withSession(generateMetadata))
	sess.PUT("/metadata", s.withSession(setMetadata))

	sess.GET("/scenes", s.withSession(listScenes))
	sess.POST("/scenes/:scene/prompt", s.withSession(generateImagePrompt))
	sess.PUT("/scenes/:scene/prompt", s.withSession(setImagePrompt))
	sess.GET("/prompts/export", s.withSession(exportImagePrompts))

	sess.POST("/translation/source", s.withSession(seedTranslationSource))
	sess.PUT("/translation/source", s.withSession(setTranslationSource))
	sess.POST("/reports/:lang", s.withSession(generateReport))
	sess.GET("/reports/:lang/export", s.withSession(exportReport))

	return r
}

// Run serves on the configured address until ctx is canceled. When enabled,
// the prompt catalog is reloaded whenever the file changes.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Server.WatchPrompts && s.promptsPath != "" {
		// Watch returns once the watcher is set up and stops with ctx.
		if err := s.loader.Watch(ctx, s.promptsPath); err != nil {
			logrus.WithError(err).Warn("prompt file watch disabled")
		}
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Server) wizard() (*pipeline.Wizard, error) {
	c, err := s.loader.Load(s.promptsPath)
	if err != nil {
		return nil, err
	}
	return pipeline.New(c, s.invoker, s.cfg), nil
}

// sessionFunc runs against a locked, loaded session. The returned value is
// written as the JSON response.
type sessionFunc func(c *gin.Context, w *pipeline.Wizard, sess *session.Session) (any, error)

// withSession loads the session, runs fn and saves the session. The session
// is saved even when fn fails, so recorded requests survive failed calls.
func (s *Server) withSession(fn sessionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := storage.ValidateID(id); err != nil {
			writeError(c, &pipeline.InputError{Field: "id", Message: err.Error()})
			return
		}

		unlock := s.lock(id)
		defer unlock()

		ctx := c.Request.Context()
		sess, err := s.store.Load(ctx, id)
		if err != nil {
			writeError(c, err)
			return
		}
		w, err := s.wizard()
		if err != nil {
			writeError(c, err)
			return
		}

		out, runErr := fn(c, w, sess)
		if err := s.store.Save(context.WithoutCancel(ctx), sess); err != nil {
			logrus.WithError(err).WithField("session", id).Error("failed to save session")
			if runErr == nil {
				runErr = err
			}
		}
		if runErr != nil {
			writeError(c, runErr)
			return
		}
		if out != nil {
			c.JSON(http.StatusOK, out)
		}
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Debug("request")
	}
}
