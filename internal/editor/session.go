// Package editor wires one open CMMN document: the semantic tree, its
// diagram, the registry, id pool, rule engine, command stack, modeling
// facade and structural updaters. A Session is created on load and torn
// down on close; sessions share nothing.
package editor

import (
	"go.uber.org/zap"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
	"github.com/dusk-indust/cmmnedit/internal/command"
	"github.com/dusk-indust/cmmnedit/internal/config"
	"github.com/dusk-indust/cmmnedit/internal/diagram"
	"github.com/dusk-indust/cmmnedit/internal/ids"
	"github.com/dusk-indust/cmmnedit/internal/modeling"
	"github.com/dusk-indust/cmmnedit/internal/registry"
	"github.com/dusk-indust/cmmnedit/internal/rules"
	"github.com/dusk-indust/cmmnedit/internal/updater"
)

// Session is the editing context of one open document.
type Session struct {
	cfg    config.Config
	logger *zap.Logger

	env      *modeling.Env
	stack    *command.Stack
	rules    *rules.Rules
	modeling *modeling.Modeling
	updaters *updater.Updaters
}

// New returns a session holding an empty document. A nil cfg uses the
// defaults.
func New(cfg *config.Config, logger *zap.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{cfg: *cfg, logger: logger.Named("session")}
	pool := ids.NewPool()
	doc := cmmn.NewDocument("", "")
	doc.Definitions.ID = pool.NextPrefixed("Definitions", doc.Definitions)
	doc.Diagram.ID = pool.NextPrefixed("CMMNDiagram", doc.Diagram)
	if err := s.wire(doc, pool); err != nil {
		return nil, err
	}
	s.env.Registry.Add(doc.Definitions)
	s.logger.Info("session opened", zap.String("definitions", doc.Definitions.ID))
	return s, nil
}

// wire builds fresh per-document components around doc.
func (s *Session) wire(doc *cmmn.Document, pool *ids.Pool) error {
	canvas := diagram.NewCanvas(doc.Definitions)
	s.env = &modeling.Env{
		Doc:      doc,
		Canvas:   canvas,
		Registry: registry.New(canvas),
		IDs:      pool,
		Logger:   s.logger,
	}
	s.stack = command.NewStack(
		command.WithLogger(s.logger),
		command.WithLimit(s.cfg.History.Limit),
	)
	s.rules = rules.New(s.cfg.Rules)
	m, err := modeling.New(s.stack, s.env, s.rules)
	if err != nil {
		return err
	}
	s.modeling = m
	s.updaters = updater.Register(s.stack, s.env, s.logger)
	return nil
}

// Document returns the open document.
func (s *Session) Document() *cmmn.Document { return s.env.Doc }

// Canvas returns the diagram.
func (s *Session) Canvas() *diagram.Canvas { return s.env.Canvas }

// Registry returns the semantic reference registry.
func (s *Session) Registry() *registry.Registry { return s.env.Registry }

// IDs returns the id pool.
func (s *Session) IDs() *ids.Pool { return s.env.IDs }

// Rules returns the rule engine.
func (s *Session) Rules() *rules.Rules { return s.rules }

// Modeling returns the modeling facade.
func (s *Session) Modeling() *modeling.Modeling { return s.modeling }

// Stack returns the command stack.
func (s *Session) Stack() *command.Stack { return s.stack }

// Close drops the history and forgets every node and element. The
// document itself is left as it is.
func (s *Session) Close() {
	s.stack.Clear()
	s.env.Registry.Clear()
	s.env.Canvas.Clear()
	s.env.IDs.Clear()
	s.logger.Info("session closed", zap.String("definitions", s.env.Doc.Definitions.ID))
}
