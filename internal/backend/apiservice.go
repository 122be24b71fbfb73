package backend

import (
	"net/http"

	"github.com/jo-hoe/leafdoctor/internal/core"
	"github.com/labstack/echo/v4"
)

const ProbePath = "/probe"

// APIService serves the machine-facing endpoints next to the web pages
type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET(ProbePath, func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	if s.config.Metrics.Enabled {
		e.GET("/metrics", echo.WrapHandler(s.coreService.Metrics().Handler()))
	}
}
