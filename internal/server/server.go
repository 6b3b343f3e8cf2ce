package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/api"
	"github.com/walletwise/walletwise/internal/auth"
	"github.com/walletwise/walletwise/internal/billing"
	"github.com/walletwise/walletwise/internal/config"
	"github.com/walletwise/walletwise/internal/httputil"
)

type Server struct {
	config     *config.AppConfig
	log        *zap.Logger
	httpServer *http.Server
}

type Params struct {
	fx.In

	Config         *config.AppConfig
	Logger         *zap.Logger
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	BillingHandler *billing.Handler
}

func NewServer(p Params) *Server {
	router := newRouter(p)

	addr := fmt.Sprintf("%s:%s", p.Config.Server.Host, p.Config.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  p.Config.Server.ReadTimeout,
		WriteTimeout: p.Config.Server.WriteTimeout,
	}

	return &Server{
		config:     p.Config,
		log:        p.Logger,
		httpServer: httpServer,
	}
}

func newRouter(p Params) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get(api.Health, func(w http.ResponseWriter, _ *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Credential endpoints get per-IP rate limiting; everything else relies
	// on authentication.
	rateLimit := httprate.LimitByIP(
		p.Config.RateLimit.AuthRequests,
		p.Config.RateLimit.AuthWindow,
	)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Post(api.AuthRegister, p.AuthHandler.Register)
		r.Post(api.AuthLogin, p.AuthHandler.Login)
		r.Post(api.AuthForgotPassword, p.AuthHandler.ForgotPassword)
		r.Post(api.AuthResetPassword, p.AuthHandler.ResetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(p.AuthMiddleware.Authenticate)
		r.Get(api.AuthProfile, p.AuthHandler.Profile)
		r.Put(api.AuthProfile, p.AuthHandler.UpdateProfile)
		r.Delete(api.AuthProfile, p.AuthHandler.DeleteAccount)
		r.Post(api.AuthChangePassword, p.AuthHandler.ChangePassword)
		r.Post(api.AuthUnblock, p.AuthHandler.Unblock)

		r.Post(api.BillingConfirmPayment, p.BillingHandler.ConfirmPayment)
		r.Post(api.BillingCheckoutSession, p.BillingHandler.CreateCheckoutSession)
		r.Get(api.BillingSubscription, p.BillingHandler.Subscription)
	})

	// Authenticated by provider signature, not bearer token.
	r.Post(api.BillingWebhook, p.BillingHandler.Webhook)

	return r
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		zap.String("address", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop() {
	s.log.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("graceful shutdown failed", zap.Error(err))
	}
}
