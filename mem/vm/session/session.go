// Package session owns the state of one simulation run on behalf of an
// interactive caller: the configuration, the page table, and the load queue.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rs/xid"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addresstranslator"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/sim/hooking"
)

// ErrNotGenerated is returned by operations that need a page table before
// one has been generated.
var ErrNotGenerated = errors.New("page table not generated")

// A Session holds one run. Calls must be serialized by the caller.
type Session struct {
	id         string
	logger     *slog.Logger
	hooks      []hooking.Hook
	counter    *hooking.PosCountHook
	generated  bool
	cfg        vm.Config
	state      vm.State
	translator *addresstranslator.Comp
}

// An Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger of the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithHook registers a hook on the translator and the replacement engine of
// every table the session generates.
func WithHook(h hooking.Hook) Option {
	return func(s *Session) {
		s.hooks = append(s.hooks, h)
	}
}

// New creates a session with no page table.
func New(opts ...Option) *Session {
	s := &Session{
		id:      xid.New().String(),
		counter: hooking.NewPosCountHook(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s.logger = s.logger.With("session", s.id)

	return s
}

// ID returns the unique ID of the session.
func (s *Session) ID() string {
	return s.id
}

// Generated returns true once a page table exists.
func (s *Session) Generated() bool {
	return s.generated
}

// Config returns the configuration of the current table.
func (s *Session) Config() vm.Config {
	return s.cfg
}

// State returns a copy of the current page table and load queue.
func (s *Session) State() vm.State {
	return s.state.Clone()
}

// Generate applies a new configuration, discarding the previous table. On
// failure the previous table is kept.
func (s *Session) Generate(cfg vm.Config) error {
	state, err := vm.Generate(cfg)
	if err != nil {
		s.logger.Warn("rejected configuration", "config", cfg.String(),
			"error", err)
		return err
	}

	engine := replacement.NewFIFOEngine()

	translator, err := addresstranslator.MakeBuilder().
		WithConfig(cfg).
		WithReplacementEngine(engine).
		WithLogger(s.logger).
		Build("Translator")
	if err != nil {
		return err
	}

	s.counter.Reset()

	for _, h := range append([]hooking.Hook{s.counter}, s.hooks...) {
		engine.AcceptHook(h)
		translator.AcceptHook(h)
	}

	s.cfg = cfg
	s.state = state
	s.translator = translator
	s.generated = true

	s.logger.Info("page table generated",
		"pages", cfg.TotalPages(),
		"frames", cfg.TotalFrames(),
		"offset_bits", cfg.OffsetBits())

	return nil
}

// Translate translates a hex address. A v2p translation of a non-resident
// page loads the page and updates the session state.
func (s *Session) Translate(
	dir addresstranslator.Direction,
	addressHex string,
) (addresstranslator.Result, error) {
	if !s.generated {
		return addresstranslator.Result{}, ErrNotGenerated
	}

	res, next, err := s.translator.Translate(s.state, dir, addressHex)
	if err != nil {
		s.logger.Debug("translation failed", "direction", dir.String(),
			"address", addressHex, "error", err)
		return addresstranslator.Result{}, err
	}

	s.state = next

	return res, nil
}

// ApplyManualEdit overrides a field of a page table entry.
func (s *Session) ApplyManualEdit(index uint64, field vm.Field, value int) error {
	if !s.generated {
		return ErrNotGenerated
	}

	next, err := vm.ApplyManualEdit(s.cfg, s.state, index, field, value)
	if err != nil {
		return err
	}

	s.state = next
	s.logger.Info("manual edit", "index", index, "field", field.String(),
		"value", value)

	return nil
}

// SwapPhysicalSlots exchanges the frames of two resident pages.
func (s *Session) SwapPhysicalSlots(a, b uint64) error {
	if !s.generated {
		return ErrNotGenerated
	}

	next, err := vm.SwapPhysicalSlots(s.state, a, b)
	if err != nil {
		return err
	}

	s.state = next
	s.logger.Info("physical slots swapped", "a", a, "b", b)

	return nil
}

// Stats counts what happened since the table was generated.
type Stats struct {
	Translations uint64 `json:"translations"`
	Faults       uint64 `json:"faults"`
	Evictions    uint64 `json:"evictions"`
}

// Stats returns the counters of the current table.
func (s *Session) Stats() Stats {
	return Stats{
		Translations: s.counter.GetCount(addresstranslator.HookPosTranslation),
		Faults:       s.counter.GetCount(replacement.HookPosPageFault),
		Evictions:    s.counter.GetCount(replacement.HookPosPageEvict),
	}
}

// A Row is a page table entry in display form.
type Row struct {
	Index         uint64 `json:"index"`
	VirtualIndex  string `json:"virtual_index"`
	PhysicalIndex string `json:"physical_index"`
	Present       bool   `json:"present"`
	ArrivalOrder  int    `json:"arrival_order"`
}

// A Snapshot is the whole session in display form.
type Snapshot struct {
	ID               string    `json:"id"`
	Config           vm.Config `json:"config"`
	OffsetBits       int       `json:"offset_bits"`
	VirtualPageBits  int       `json:"virtual_page_bits"`
	PhysicalPageBits int       `json:"physical_page_bits"`
	Rows             []Row     `json:"rows"`
	LoadQueue        []uint64  `json:"load_queue"`
}

// Snapshot renders the current table.
func (s *Session) Snapshot() (Snapshot, error) {
	if !s.generated {
		return Snapshot{}, ErrNotGenerated
	}

	snap := Snapshot{
		ID:               s.id,
		Config:           s.cfg,
		OffsetBits:       s.cfg.OffsetBits(),
		VirtualPageBits:  s.cfg.VirtualPageBits(),
		PhysicalPageBits: s.cfg.PhysicalPageBits(),
		LoadQueue:        s.state.Queue.Pages(),
	}

	for _, e := range s.state.Table.Entries() {
		vi, err := s.state.Table.VirtualIndex(s.cfg, e.VPN)
		if err != nil {
			return Snapshot{}, fmt.Errorf("page %d: %w", e.VPN, err)
		}

		pi, err := s.state.Table.PhysicalIndex(s.cfg, e.VPN)
		if err != nil {
			return Snapshot{}, fmt.Errorf("page %d: %w", e.VPN, err)
		}

		snap.Rows = append(snap.Rows, Row{
			Index:         e.VPN,
			VirtualIndex:  vi,
			PhysicalIndex: pi,
			Present:       e.Present,
			ArrivalOrder:  e.ArrivalOrder,
		})
	}

	return snap, nil
}
