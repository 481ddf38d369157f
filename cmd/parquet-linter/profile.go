package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
)

// profiler writes pprof profiles around one command
type profiler struct {
	cpu     *os.File
	memPath string
}

func startProfiler(cpuPath, memPath string) (*profiler, error) {
	p := &profiler{memPath: memPath}
	if cpuPath == "" {
		return p, nil
	}
	f, err := os.Create(cpuPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create CPU profile").WithDetail("path", cpuPath)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to start CPU profile")
	}
	p.cpu = f
	return p, nil
}

// stop ends CPU profiling and writes the heap profile
func (p *profiler) stop() error {
	var firstErr error
	if p.cpu != nil {
		pprof.StopCPUProfile()
		if err := p.cpu.Close(); err != nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeIO, "failed to close CPU profile")
		}
		p.cpu = nil
	}
	if p.memPath == "" {
		return firstErr
	}

	f, err := os.Create(p.memPath)
	if err != nil {
		if firstErr == nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeIO, "failed to create memory profile").WithDetail("path", p.memPath)
		}
		return firstErr
	}
	defer f.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, errors.ErrorTypeIO, "failed to write memory profile")
	}
	p.memPath = ""
	return firstErr
}
