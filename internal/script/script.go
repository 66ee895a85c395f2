// Package script replays modeling gestures written as YAML step lists
// against an editor session. Steps name elements through aliases bound by
// earlier steps, or by diagram element id.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/cmmnedit/internal/cmmn"
)

// Step operations.
const (
	OpCreate         = "create"
	OpAppend         = "append"
	OpConnect        = "connect"
	OpMove           = "move"
	OpResize         = "resize"
	OpReplace        = "replace"
	OpToggleCollapse = "toggle"
	OpReconnectStart = "reconnect-start"
	OpReconnectEnd   = "reconnect-end"
	OpLayout         = "layout"
	OpDelete         = "delete"
	OpUpdate         = "update"
	OpUndo           = "undo"
	OpRedo           = "redo"
	OpVerify         = "verify"
	OpExpect         = "expect"
)

// Script is a named list of steps.
type Script struct {
	Name string `yaml:"name,omitempty"`
	// Verify checks session consistency after every step.
	Verify bool   `yaml:"verify,omitempty"`
	Steps  []Step `yaml:"steps" validate:"required,dive"`
}

// Step is one gesture. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op" validate:"required,oneof=create append connect move resize replace toggle reconnect-start reconnect-end layout delete update undo redo verify expect"`
	// As binds the element a create, append, connect or replace step
	// produces to an alias.
	As string `yaml:"as,omitempty"`

	// Kind is the rendered node kind for create and append, or the
	// replacement kind for replace.
	Kind string `yaml:"kind,omitempty" validate:"required_if=Op create,required_if=Op append,required_if=Op replace"`
	// Definition is the plan item definition kind of a new item.
	Definition string `yaml:"definition,omitempty"`
	// ShareWith reuses the definition (items) or sentry (criteria) of the
	// named element.
	ShareWith string  `yaml:"shareWith,omitempty"`
	Name      *string `yaml:"name,omitempty"`
	ID        *string `yaml:"id,omitempty"`
	Collapsed bool    `yaml:"collapsed,omitempty"`

	Element  string   `yaml:"element,omitempty"`
	Elements []string `yaml:"elements,omitempty"`
	Parent   string   `yaml:"parent,omitempty"`
	Host     string   `yaml:"host,omitempty"`
	Source   string   `yaml:"source,omitempty"`
	Target   string   `yaml:"target,omitempty"`
	// Attach makes a move (re)attach the selection to Host.
	Attach bool `yaml:"attach,omitempty"`

	At        *cmmn.Point  `yaml:"at,omitempty"`
	By        *cmmn.Point  `yaml:"by,omitempty"`
	Bounds    *cmmn.Bounds `yaml:"bounds,omitempty"`
	Waypoints []cmmn.Point `yaml:"waypoints,omitempty"`

	Blocking     *bool `yaml:"blocking,omitempty"`
	AutoComplete *bool `yaml:"autoComplete,omitempty"`

	Expect *Expect `yaml:"expect,omitempty" validate:"required_if=Op expect"`
}

// Expect is a set of assertions checked by an expect step.
type Expect struct {
	// Count maps a node kind to the number of such nodes in the document.
	Count map[string]int `yaml:"count,omitempty"`
	// SameDefinition lists elements that must share one definition.
	SameDefinition []string `yaml:"sameDefinition,omitempty"`
	// DistinctDefinition lists elements whose definitions must differ.
	DistinctDefinition []string `yaml:"distinctDefinition,omitempty"`
	// Parents maps an element to its expected semantic parent: a node id,
	// or an element whose node or definition holds it.
	Parents   map[string]string `yaml:"parents,omitempty"`
	Absent    []string          `yaml:"absent,omitempty"`
	UndoDepth *int              `yaml:"undoDepth,omitempty"`
	RedoDepth *int              `yaml:"redoDepth,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags.
func (s *Script) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid script: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid script: %w", err)
	}
	return nil
}

// Load parses and validates a script. Unknown keys are rejected.
func Load(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads the script at path.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}
