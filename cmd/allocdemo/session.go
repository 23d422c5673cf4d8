package main

import (
	"fmt"

	"github.com/arborsys/asyncmem/internal/obslog"
	"github.com/arborsys/asyncmem/internal/simdriver"
	"github.com/arborsys/asyncmem/internal/sysalloc"
	"github.com/arborsys/asyncmem/mem"
)

// session bundles one allocator wired to one simulated driver, for a
// single demo subcommand run.
type session struct {
	alloc  *mem.Allocator
	driver *simdriver.Driver
}

func newSession() (*session, error) {
	devices := make([]int, deviceCount)
	for i := range devices {
		devices[i] = i
	}
	driver := simdriver.NewDriver(devices...)

	if verbose {
		obslog.Init(obslog.Options{Enabled: true, Level: obslog.LevelTrace})
	}

	a, err := mem.New(mem.Config{
		Driver:             driver,
		System:             sysalloc.New(),
		Logger:             obslog.New(),
		VectorWidth:        vectorWidth,
		HostAsyncAvailable: true,
	})
	if err != nil {
		return nil, err
	}
	return &session{alloc: a, driver: driver}, nil
}

func (s *session) close() {
	report := s.alloc.Shutdown()
	if report.Empty() {
		return
	}
	printSection("leak report")
	for kind, n := range report.Counts {
		fmt.Printf("  %-20s count=%-4d bytes=%d\n", kind, n, report.Bytes[kind])
	}
}
