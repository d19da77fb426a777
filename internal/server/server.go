package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lotsight/lotsight/internal/config"
	"github.com/lotsight/lotsight/internal/dimension"
	"github.com/lotsight/lotsight/internal/ingest"
	ingestdomain "github.com/lotsight/lotsight/internal/ingest/domain"
	"github.com/lotsight/lotsight/internal/intake"
	intakedomain "github.com/lotsight/lotsight/internal/intake/domain"
	"github.com/lotsight/lotsight/internal/lot"
	"github.com/lotsight/lotsight/internal/metrics"
	"github.com/lotsight/lotsight/internal/report"
	reportdomain "github.com/lotsight/lotsight/internal/report/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	metrics.Module,
	dimension.Module,
	lot.Module,
	ingest.Module,
	report.Module,
	intake.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ServerParam struct {
	fx.In

	Engine    *gin.Engine
	Log       *zap.Logger
	IngestSvc ingestdomain.Service
	ReportSvc reportdomain.Service
	IntakeSvc intakedomain.Service
}

type Server struct {
	engine *gin.Engine
	log    *zap.Logger

	ingestSvc ingestdomain.Service
	reportSvc reportdomain.Service
	intakeSvc intakedomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine: p.Engine,
		log:    p.Log.Named("http.server"),

		ingestSvc: p.IngestSvc,
		reportSvc: p.ReportSvc,
		intakeSvc: p.IntakeSvc,
	}
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")

	api.POST("/ingest/run", s.TriggerIngest)

	api.GET("/reports/weekly-summary", s.WeeklySummary)
	api.GET("/reports/drilldown", s.DrillDown)
	api.GET("/reports/flag-counts", s.FlagCounts)

	api.POST("/logs/production", s.AddProductionLog)
	api.POST("/logs/shipping", s.AddShippingLog)
	api.POST("/lots", s.UpsertLot)
}

func run(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
