package main

import (
	"context"
	"fmt"

	revbrief "github.com/alnah/go-revbrief"
)

// BriefExporter is the slice of revbrief.Exporter the CLI depends on.
type BriefExporter interface {
	Export(ctx context.Context, input revbrief.Input) (*revbrief.Result, error)
}

// Compile-time interface implementation check.
var _ BriefExporter = (*revbrief.Exporter)(nil)

// Pool abstracts exporter pool operations for testability.
type Pool interface {
	Acquire() (BriefExporter, error)
	Release(BriefExporter)
	Size() int
	Close() error
}

// PoolFactory builds a pool of n exporters configured with opts.
type PoolFactory func(n int, opts ...revbrief.Option) Pool

// poolAdapter exposes a revbrief.ExporterPool through the Pool interface.
type poolAdapter struct {
	pool *revbrief.ExporterPool
}

// Compile-time check that poolAdapter implements Pool.
var _ Pool = (*poolAdapter)(nil)

// newExporterPool is the production PoolFactory.
func newExporterPool(n int, opts ...revbrief.Option) Pool {
	return &poolAdapter{pool: revbrief.NewExporterPool(n, opts...)}
}

func (a *poolAdapter) Acquire() (BriefExporter, error) {
	exp, err := a.pool.Acquire()
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// Release panics when handed an exporter this pool did not produce.
func (a *poolAdapter) Release(exp BriefExporter) {
	e, ok := exp.(*revbrief.Exporter)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: unexpected type %T", exp))
	}
	a.pool.Release(e)
}

func (a *poolAdapter) Size() int {
	return a.pool.Size()
}

func (a *poolAdapter) Close() error {
	return a.pool.Close()
}
