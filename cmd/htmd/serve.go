package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/htmd"
	"github.com/jcorbin/htmd/internal/config"
	"github.com/jcorbin/htmd/internal/metrics"
)

const (
	requestIDHeader = "X-Request-ID"
	loggerKey       = "htmd.logger"
	markdownType    = "text/markdown; charset=utf-8"
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(fl *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Serve conversions over HTTP.

  POST /convert   convert the request body, streaming Markdown back;
                  the origin and strategy query parameters override
                  configuration, and data=1 instead returns JSON with the
                  Markdown and any plugin results
  GET  /healthz   liveness check
  GET  /metrics   prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := fl.load(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, fl.logger(cmd), !fl.verbose)
		},
	}
	f := cmd.Flags()
	f.StringVar(&fl.cfg.Serve.Addr, "addr", "", "listen address (default :8080)")
	f.Int64Var(&fl.cfg.Serve.MaxBody, "max-body", 0, "maximum request body size in bytes")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger, quiet bool) error {
	if quiet {
		gin.SetMode(gin.ReleaseMode)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           newServer(cfg, log, reg).router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

type server struct {
	cfg     config.Config
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

func newServer(cfg config.Config, log *slog.Logger, reg *prometheus.Registry) *server {
	return &server{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		metrics: metrics.New(reg),
	}
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})))
	r.POST("/convert", s.convert)
	return r
}

// requestID tags every request with an id, taken from a valid X-Request-ID
// header or generated, and logs its outcome.
func (s *server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	log := s.log.With("request_id", id)
	c.Set(loggerKey, log)

	t0 := time.Now()
	c.Next()
	log.Info("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"bytes", c.Writer.Size(),
		"duration", time.Since(t0))
}

func requestLogger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if log, ok := v.(*slog.Logger); ok {
			return log
		}
	}
	return slog.Default()
}

func (s *server) convert(c *gin.Context) {
	log := requestLogger(c)

	cfg := s.cfg
	if v, ok := c.GetQuery("origin"); ok {
		cfg.Origin = v
	}
	if v, ok := c.GetQuery("strategy"); ok {
		cfg.Strategy = v
	}
	if err := cfg.Validate(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts, err := cfg.Options(log)
	if err != nil {
		fail(c, log, err)
		return
	}

	var body io.Reader = c.Request.Body
	if cfg.Serve.MaxBody > 0 {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.Serve.MaxBody)
	}

	if c.Query("data") != "" {
		s.convertData(c, log, body, opts)
		return
	}

	sopts := cfg.StreamOptions()
	sopts.Observer = s.metrics.Start()
	c.Header("Content-Type", markdownType)
	for chunk, err := range htmd.ConvertStream(htmd.ReaderSource(body, cfg.ChunkSize), opts, sopts) {
		if err != nil {
			fail(c, log, err)
			return
		}
		if _, err := io.WriteString(c.Writer, chunk); err != nil {
			log.Warn("response write failed", "err", err)
			return
		}
		c.Writer.Flush()
	}
}

// convertData converts the whole body at once, responding with the Markdown
// and plugin results as JSON.
func (s *server) convertData(c *gin.Context, log *slog.Logger, body io.Reader, opts htmd.Options) {
	html, err := io.ReadAll(body)
	if err != nil {
		fail(c, log, err)
		return
	}
	obs := s.metrics.Start()
	t0 := time.Now()
	res := <-htmd.ConvertAsync(c.Request.Context(), string(html), opts)
	obs.ObserveChunk(len(res.Markdown))
	obs.ObserveDone(htmd.StreamStats{
		InputBytes:  int64(len(html)),
		OutputBytes: int64(len(res.Markdown)),
		Chunks:      1,
		Duration:    time.Since(t0),
	}, res.Err)
	if res.Err != nil {
		fail(c, log, res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"markdown": res.Markdown,
		"data":     res.Data,
	})
}

// fail responds with an error, unless a response is already underway, in
// which case it is only logged and the response is cut short.
func fail(c *gin.Context, log *slog.Logger, err error) {
	log.Error("conversion failed", "err", err)
	if c.Writer.Written() {
		c.Abort()
		return
	}
	status := http.StatusInternalServerError
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	c.Writer.Header().Del("Content-Type")
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
