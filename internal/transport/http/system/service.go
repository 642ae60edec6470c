// Package system exposes the unauthenticated service endpoints: health and
// the supported upload formats.
package system

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stayonboard-server-go/internal/domain/validation"
	"stayonboard-server-go/internal/platform/errors"
	"stayonboard-server-go/internal/platform/logging"
	httptransport "stayonboard-server-go/internal/transport/http"
)

// Service answers the service-level endpoints.
type Service struct {
	validations *validation.Service
	logger      *logging.Logger
	started     time.Time
}

// NewService creates the system transport service.
func NewService(validations *validation.Service, logger *logging.Logger) (*Service, error) {
	if validations == nil {
		return nil, errors.New(errors.KindConfig, "system.new", "validation service required")
	}
	return &Service{
		validations: validations,
		logger:      logger,
		started:     time.Now(),
	}, nil
}

// Register wires the routes onto the open group.
func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.GET("/health", s.handleHealth)
	router.GET("/formats", s.handleFormats)
	return nil
}

func (s *Service) handleHealth(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	}, "")
}

func (s *Service) handleFormats(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"formats": s.validations.SupportedFormats(),
	}, "")
}
