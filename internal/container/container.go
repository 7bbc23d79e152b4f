package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/guyettinger/gle-vision-chat/internal/analysis"
	"github.com/guyettinger/gle-vision-chat/internal/config"
	"github.com/guyettinger/gle-vision-chat/internal/transport"
	"github.com/guyettinger/gle-vision-chat/internal/vision"
)

// Container holds all application dependencies
type Container struct {
	config  *config.Config
	model   vision.Model
	service *analysis.Service
	handler http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	model, err := vision.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision model: %w", err)
	}

	service := analysis.NewService(model)
	handler := transport.NewHandler(service, cfg)

	return &Container{
		config:  cfg,
		model:   model,
		service: service,
		handler: handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
