package main

import (
	"io"
	"os"
	"time"

	"github.com/alnah/go-revbrief/internal/config"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, configuration, and the exporter pool factory.
type Environment struct {
	Now     func() time.Time
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config // defaults; replaced by --config or REVBRIEF_CONFIG
	NewPool PoolFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:     time.Now,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  config.DefaultConfig(),
		NewPool: newExporterPool,
	}
}
