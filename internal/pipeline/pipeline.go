// Package pipeline wires the five core passes into the canonical
// C2, C3, C4, C5, C6 order (§2) and enforces the declared dependencies
// between them (§6). It is the interface a host driver is expected to
// call through; registering passes with an actual host compiler,
// command-line plumbing, and statistics reporting are out of scope
// here and left to that driver.
package pipeline

import (
	"checkedc-tempsafety/internal/blocksplit"
	"checkedc-tempsafety/internal/checkremove"
	"checkedc-tempsafety/internal/freefinder"
	"checkedc-tempsafety/internal/ir"
	"checkedc-tempsafety/internal/lockinsert"
	"checkedc-tempsafety/internal/typeharmonize"
)

// Pass is the uniform entry point every component in the pipeline
// exposes (§6).
type Pass interface {
	Name() string
	Run(m *ir.Module) (bool, error)
}

// Result bundles the pipeline's terminal state for a host driver that
// wants to inspect what each analysis or optimization found, beyond
// the plain changed/unchanged bool.
type Result struct {
	Changed      bool
	FreeFinder   *freefinder.Pass
	BlockSplit   *blocksplit.Pass
	CheckRemove  *checkremove.Pass
	RemovedCount int
}

// Run executes the full pipeline over m in canonical order. hoist
// enables Check-Removal's optional pre-call check insertion.
func Run(m *ir.Module, hoist bool) (*Result, error) {
	res := &Result{}

	lock := lockinsert.New()
	if c, err := lock.Run(m); err != nil {
		return res, err
	} else if c {
		res.Changed = true
	}

	harmonize := typeharmonize.New()
	if c, err := harmonize.Run(m); err != nil {
		return res, err
	} else if c {
		res.Changed = true
	}

	res.FreeFinder = freefinder.New()
	if _, err := res.FreeFinder.Run(m); err != nil {
		return res, err
	}

	res.BlockSplit = blocksplit.New(res.FreeFinder)
	if c, err := res.BlockSplit.Run(m); err != nil {
		return res, err
	} else if c {
		res.Changed = true
	}

	res.CheckRemove = checkremove.New(res.BlockSplit, hoist)
	if c, err := res.CheckRemove.Run(m); err != nil {
		return res, err
	} else if c {
		res.Changed = true
	}
	res.RemovedCount = res.CheckRemove.RemovedCount

	return res, nil
}

var (
	_ Pass = (*lockinsert.Pass)(nil)
	_ Pass = (*typeharmonize.Pass)(nil)
	_ Pass = (*freefinder.Pass)(nil)
	_ Pass = (*blocksplit.Pass)(nil)
	_ Pass = (*checkremove.Pass)(nil)
)
