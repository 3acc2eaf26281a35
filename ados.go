// Package ados provides a top-level convenience entry point for the crew
// orchestration system.
//
// Usage:
//
//	import "github.com/BaSui01/ados"
//
//	orch, err := ados.New(ados.DefaultConfig(), ados.WithLogger(logger))
//	if err != nil { ... }
//	if err := orch.Initialize(ctx); err != nil { ... }
//
// This is a thin wrapper around [orchestrator.New]; both produce identical
// results. Use this package when you prefer the shorter import path.
package ados

import (
	"github.com/BaSui01/ados/config"
	"github.com/BaSui01/ados/orchestrator"
)

// Option configures the orchestrator created by [New].
type Option = orchestrator.Option

// Orchestrator is the system facade created by [New].
type Orchestrator = orchestrator.Orchestrator

// Status is the snapshot returned by [Orchestrator.Status].
type Status = orchestrator.Status

// New creates an [orchestrator.Orchestrator] from the given configuration.
// Call Initialize on the result before using it.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	return orchestrator.New(cfg, opts...)
}

// Re-export option and config shortcuts so callers never need extra imports.

// WithLogger sets a custom zap logger.
var WithLogger = orchestrator.WithLogger

// WithMetrics attaches a metrics collector.
var WithMetrics = orchestrator.WithMetrics

// WithLoader overrides the registry loader.
var WithLoader = orchestrator.WithLoader

// DefaultConfig returns the built-in configuration defaults.
var DefaultConfig = config.DefaultConfig

// MustLoad loads configuration from the given path and panics on failure.
var MustLoad = config.MustLoad
