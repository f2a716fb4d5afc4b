package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"securepay/internal/config"
	"securepay/internal/infra/keys"
	"securepay/internal/infra/payload"
	"securepay/internal/infra/token"
	"securepay/internal/usecase"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine
	log logrus.FieldLogger

	issueUC  *usecase.IssueToken
	submitUC *usecase.SubmitPayment

	registry *prometheus.Registry
	metrics  *metrics
}

type ServerDeps struct {
	Issue    *usecase.IssueToken
	Submit   *usecase.SubmitPayment
	Logger   logrus.FieldLogger
	Registry *prometheus.Registry
}

// NewServer wires the protocol against the loaded key material. Missing keys
// do not prevent startup; the affected operations report a configuration
// error when called.
func NewServer(cfg config.Config, keySet keys.Set, logger logrus.FieldLogger) *Server {
	authority := token.NewAuthority(keySet.AuthPrivate, keySet.AuthPublic,
		token.WithIssuer(cfg.TokenIssuer),
		token.WithTTL(cfg.TokenTTL()),
	)
	return NewServerWithDeps(cfg, ServerDeps{
		Issue: &usecase.IssueToken{Tokens: authority},
		Submit: &usecase.SubmitPayment{
			Tokens:   authority,
			Payloads: payload.Opener{Key: keySet.EncryptPrivate},
		},
		Logger: logger,
	})
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	s := &Server{
		cfg:      cfg,
		r:        gin.New(),
		log:      deps.Logger,
		issueUC:  deps.Issue,
		submitUC: deps.Submit,
		registry: deps.Registry,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	s.r.Use(gin.CustomRecovery(s.handlePanic))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	s.r.POST("/auth", s.handleAuth)
	s.r.POST("/payment", s.handlePayment)

	s.r.NoRoute(s.handleNoRoute)
}

// Handler returns the engine wrapped with the configured CORS policy.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(s.r)
}

func (s *Server) Run() error {
	s.log.WithField("addr", s.cfg.HTTPAddr).Info("securepay listening")
	return http.ListenAndServe(s.cfg.HTTPAddr, s.Handler())
}
