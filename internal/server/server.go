// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldhive/opsledger/internal/actorcontext"
	"github.com/fieldhive/opsledger/internal/config"
	invoicedomain "github.com/fieldhive/opsledger/internal/invoice/domain"
	"github.com/fieldhive/opsledger/internal/logger"
	"github.com/fieldhive/opsledger/internal/observability/metrics"
	paymentdomain "github.com/fieldhive/opsledger/internal/payment/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	orgIDHeader   = "X-Org-Id"
	actorIDHeader = "X-Actor-Id"
)

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	InvoiceSvc invoicedomain.Service
	PaymentSvc paymentdomain.Service
}

type Server struct {
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	invoiceSvc invoicedomain.Service
	paymentSvc paymentdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("server"),
		invoiceSvc: p.InvoiceSvc,
		paymentSvc: p.PaymentSvc,
	}
}

// Router builds the gin engine with the full route table.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(s.log))
	r.Use(metrics.GinMiddleware())
	r.Use(actorMiddleware())

	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		invoices := v1.Group("/invoices")
		{
			invoices.POST("", s.CreateInvoice)
			invoices.POST("/bulk-delete", s.BulkDeleteInvoices)
			invoices.GET("/:id", s.GetInvoice)
			invoices.PATCH("/:id", s.UpdateInvoice)
			invoices.DELETE("/:id", s.DeleteInvoice)
			invoices.POST("/:id/mark-paid", s.MarkInvoicePaid)
			invoices.POST("/:id/void", s.VoidInvoice)
			invoices.POST("/:id/recalculate", s.RecalculateInvoice)

			invoices.POST("/:id/line-items", s.AddLineItem)
			invoices.PATCH("/:id/line-items/:itemID", s.UpdateLineItem)
			invoices.DELETE("/:id/line-items/:itemID", s.DeleteLineItem)

			invoices.POST("/:id/payments", s.CreatePayment)
			invoices.PATCH("/:id/payments/:paymentID", s.UpdatePayment)
			invoices.DELETE("/:id/payments/:paymentID", s.DeletePayment)
		}
	}

	return r
}

// @Summary      Health Check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// actorMiddleware attributes state changes to the caller identified by
// the actor header. Unattributed requests record the system actor.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(actorIDHeader))
		if actorID != "" {
			ctx := actorcontext.WithActor(c.Request.Context(), actorcontext.ActorTypeUser, actorID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// orgIDFromRequest reads the organization scope header. Zero means the
// caller left scoping to owner derivation.
func orgIDFromRequest(c *gin.Context) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.GetHeader(orgIDHeader))
	if raw == "" {
		return 0, nil
	}
	orgID, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, invoicedomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	return invoicedomain.ParseID(c.Param(name))
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server, log *zap.Logger) {
		srv := &http.Server{
			Addr:    s.cfg.HTTPAddr,
			Handler: s.Router(),
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("http server exited", zap.Error(err))
					}
				}()
				log.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)
