package portfolio

import (
	"fmt"
	"os"
	"sync"

	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
	"github.com/STTM-NSU/portfolio-dashboard/internal/model"
)

// Portfolio keeps the last successfully loaded portfolio file. The file is the only
// source of truth and is never written back.
type Portfolio struct {
	path   string
	logger logger.Logger

	mu      sync.RWMutex
	current model.Portfolio
	loaded  bool
}

func NewPortfolio(path string, logger logger.Logger) *Portfolio {
	return &Portfolio{
		path:   path,
		logger: logger,
	}
}

func (p *Portfolio) Path() string {
	return p.path
}

// Reload re-reads the file. On failure the previously loaded portfolio stays in place.
func (p *Portfolio) Reload() (model.Portfolio, error) {
	loaded, err := Load(p.path, p.logger)
	if err != nil {
		p.mu.RLock()
		defer p.mu.RUnlock()
		return clone(p.current), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = loaded
	p.loaded = true
	return loaded, nil
}

// Get returns a copy of the current portfolio, loading the file on first use.
func (p *Portfolio) Get() model.Portfolio {
	p.mu.RLock()
	if p.loaded {
		defer p.mu.RUnlock()
		return clone(p.current)
	}
	p.mu.RUnlock()

	loaded, err := p.Reload()
	if err != nil {
		p.logger.Errorf("%s: can't load portfolio from %s", err, p.path)
	}
	return clone(loaded)
}

func (p *Portfolio) GetPosition(code string) (model.Position, bool) {
	for _, pos := range p.Get().Positions {
		if pos.Code == code || pos.Symbol() == code {
			return pos, true
		}
	}
	return model.Position{}, false
}

// Load parses the portfolio file, logging every skipped line.
func Load(path string, logger logger.Logger) (model.Portfolio, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("%w: can't open portfolio file", err)
	}
	defer f.Close()

	p, skipped, err := Parse(f)
	if err != nil {
		return model.Portfolio{}, err
	}
	for _, s := range skipped {
		logger.Warnf("%s: skipping portfolio line", s)
	}
	logger.Debugf("loaded %d positions from %s, realized profit %.0f", len(p.Positions), path, p.RealizedProfit)

	return p, nil
}

func clone(p model.Portfolio) model.Portfolio {
	positions := make([]model.Position, len(p.Positions))
	copy(positions, p.Positions)
	return model.Portfolio{Positions: positions, RealizedProfit: p.RealizedProfit}
}
