package health

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"sma_trader/internal/config"
)

func NewRouter(state *State) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/livez", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/readyz", func(c *gin.Context) {
		// ready after the first completed cycle
		if !state.Ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ready")
	})

	r.GET("/healthz", func(c *gin.Context) {
		var lastCycle int64
		if t := state.LastCycle(); !t.IsZero() {
			lastCycle = t.Unix()
		}
		c.JSON(http.StatusOK, gin.H{
			"ready":         state.Ready(),
			"uptimeSec":     int64(state.Uptime().Seconds()),
			"cycles":        state.Cycles(),
			"failures":      state.Failures(),
			"lastCycleUnix": lastCycle,
			"lastError":     state.LastError(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RunHTTP serves the health endpoints on health.addr; an empty address disables the server.
func RunHTTP(lc fx.Lifecycle, cfg *config.Config, router *gin.Engine, log *zap.Logger) {
	if cfg.Health.Addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              cfg.Health.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Health.Addr)
			if err != nil {
				return err
			}
			log.Info("health server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					log.Error("health server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			NewState,
			NewRouter,
		),
		fx.Invoke(RunHTTP),
	)
}
