package service

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/clock"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Clock  clock.Clock
	// Sleep is the delay function used between retry attempts; defaults to
	// time.Sleep, replaced in tests to keep retries instantaneous.
	Sleep func(time.Duration)

	// Repositories
	DocumentRepo document.Repository
}

func (p ServiceParams) clock() clock.Clock {
	if p.Clock == nil {
		return clock.New()
	}
	return p.Clock
}

func (p ServiceParams) sleep() func(time.Duration) {
	if p.Sleep == nil {
		return time.Sleep
	}
	return p.Sleep
}

func (p ServiceParams) numbering() config.NumberingConfig {
	cfg := config.NumberingConfig{
		PadWidth:           6,
		TransitionAttempts: 3,
		RenameAttempts:     5,
	}
	if p.Config == nil {
		return cfg
	}
	if p.Config.Numbering.PadWidth > 0 {
		cfg.PadWidth = p.Config.Numbering.PadWidth
	}
	if p.Config.Numbering.TransitionAttempts > 0 {
		cfg.TransitionAttempts = p.Config.Numbering.TransitionAttempts
	}
	if p.Config.Numbering.RenameAttempts > 0 {
		cfg.RenameAttempts = p.Config.Numbering.RenameAttempts
	}
	return cfg
}
