package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/tonscope/tokenrisk/internal/auth"
	"github.com/tonscope/tokenrisk/internal/risk"
	"github.com/tonscope/tokenrisk/pkg/models"
)

// Server represents the HTTP server
type Server struct {
	logger   *zap.Logger
	authSvc  auth.AuthService
	riskSvc  risk.RiskService
	validate *validator.Validate
}

// NewServer creates a new HTTP server
func NewServer(logger *zap.Logger, authSvc auth.AuthService, riskSvc risk.RiskService) *Server {
	return &Server{
		logger:   logger,
		authSvc:  authSvc,
		riskSvc:  riskSvc,
		validate: validator.New(),
	}
}

// Router creates a new HTTP router
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(otelgin.Middleware("tokenrisk"))
	router.Use(cors.Default())

	// Add health check and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Add API routes
	api := router.Group("/api")
	{
		// Auth bootstrap endpoints are the only public API surface
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/request_nonce", s.handleRequestNonce)
			authGroup.POST("/verify_signature", s.handleVerifySignature)
		}

		riskGroup := api.Group("/risk", s.authMiddleware())
		{
			riskGroup.GET("/:token_id", s.handleGetTokenRisk)
			riskGroup.POST("/calculate", s.handleCalculateRisk)
		}
	}

	return router
}

// errorMapper maps service errors to HTTP status codes
type errorMapper struct{}

func (m *errorMapper) mapError(err error) int {
	switch {
	case errors.Is(err, risk.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, risk.ErrPersistence):
		return http.StatusInternalServerError
	case strings.Contains(err.Error(), "unauthorized"):
		return http.StatusUnauthorized
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response with mapped status
func (s *Server) writeError(c *gin.Context, err error) {
	status := (&errorMapper{}).mapError(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// authMiddleware creates a middleware for authentication
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from header
		token := c.GetHeader("Authorization")
		if token == "" {
			s.writeError(c, fmt.Errorf("unauthorized: missing authorization header"))
			c.Abort()
			return
		}

		// Remove "Bearer " prefix if present
		if strings.HasPrefix(token, "Bearer ") {
			token = token[7:]
		}

		address, err := s.authSvc.ValidateToken(token)
		if err != nil {
			s.writeError(c, fmt.Errorf("unauthorized: %w", err))
			c.Abort()
			return
		}

		c.Set("walletAddress", address)
		c.Next()
	}
}

// handleRequestNonce issues a nonce for the client wallet to sign
func (s *Server) handleRequestNonce(c *gin.Context) {
	nonce, err := s.authSvc.GenerateNonce()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NonceResponse{Nonce: nonce})
}

// handleVerifySignature verifies a wallet signature and issues a JWT
func (s *Server) handleVerifySignature(c *gin.Context) {
	var req models.VerifySignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.authSvc.VerifySignature(req.Address, req.PublicKey, req.Nonce, req.Signature); err != nil {
		s.writeError(c, err)
		return
	}

	token, err := s.authSvc.IssueToken(req.Address)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// handleGetTokenRisk serves the cached risk record, recomputing when stale
func (s *Server) handleGetTokenRisk(c *gin.Context) {
	tokenID := c.Param("token_id")

	rec, err := s.riskSvc.GetTokenRisk(c.Request.Context(), tokenID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleCalculateRisk computes a scoring preview without persisting it
func (s *Server) handleCalculateRisk(c *gin.Context) {
	var req models.RiskCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.riskSvc.Compute(c.Request.Context(), req.TokenID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
