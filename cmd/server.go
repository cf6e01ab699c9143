package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/graphpanel/internal/protocol"
	"github.com/Benny93/graphpanel/internal/surface"
)

const shutdownGrace = 5 * time.Second

// router serves surfaces over websocket and exposes metrics.
type router struct {
	ctx       context.Context
	surfaces  *surface.Options
	connected prometheus.Gauge
}

// newRouter builds the HTTP handler. Surfaces are only served when opts is
// not nil; every websocket connection gets its own surface.
func newRouter(ctx context.Context, reg *prometheus.Registry, opts *surface.Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	rt := &router{
		ctx:      ctx,
		surfaces: opts,
		// connected is the number of surfaces with an open websocket
		connected: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "graphpanel_surfaces_connected",
			Help: "Number of rendering surfaces connected over websocket.",
		}),
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	if opts != nil {
		engine.GET("/surface", rt.serveSurface)
	}
	return engine
}

func (rt *router) serveSurface(c *gin.Context) {
	ws, err := protocol.Accept(c.Writer, c.Request)
	if err != nil {
		slog.Warn("surface connection rejected", "remote", c.ClientIP(), "error", err)
		return
	}
	s, err := surface.New(ws, *rt.surfaces)
	if err != nil {
		slog.Error("creating surface", "error", err)
		_ = ws.Close()
		return
	}

	rt.connected.Inc()
	defer rt.connected.Dec()
	slog.Info("surface connected", "surface", s.ID, "remote", c.ClientIP())
	if err := s.Run(rt.ctx); err != nil {
		slog.Warn("surface stopped", "surface", s.ID, "error", err)
	}
	slog.Info("surface disconnected", "surface", s.ID)
}

// listen serves handler on addr until ctx is done.
func listen(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
