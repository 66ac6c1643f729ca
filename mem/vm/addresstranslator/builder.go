package addresstranslator

import (
	"io"
	"log/slog"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

// A Builder can build address translators.
type Builder struct {
	cfg    vm.Config
	engine *replacement.Engine
	logger *slog.Logger
}

// MakeBuilder creates a new builder with a 16 KB virtual space, an 8 KB
// physical space, and 4 KB pages.
func MakeBuilder() Builder {
	return Builder{
		cfg: vm.ConfigFromKB(16, 8, 4),
	}
}

// WithConfig sets the address spaces the translator works on.
func (b Builder) WithConfig(cfg vm.Config) Builder {
	b.cfg = cfg
	return b
}

// WithReplacementEngine sets the engine that serves page faults.
func (b Builder) WithReplacementEngine(e *replacement.Engine) Builder {
	b.engine = e
	return b
}

// WithLogger sets the logger the translator reports translations to.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build returns a newly created translator. It fails if the configuration is
// not valid.
func (b Builder) Build(name string) (*Comp, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Comp{
		name:   name,
		cfg:    b.cfg,
		engine: b.engine,
		logger: b.logger,
	}

	if c.engine == nil {
		c.engine = replacement.NewFIFOEngine()
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c.logger = c.logger.With("translator", name)

	return c, nil
}
