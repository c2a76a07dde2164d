//go:build linux

/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"

	perf "github.com/hodgesds/perf-utils"

	"github.com/notargets/netgenplugin/logger"
)

// startPerf counts hardware events of this process until the returned func reports them
func startPerf() (func(w io.Writer), error) {
	hw, err := perf.NewHardwareProfiler(0, -1, perf.AllHardwareProfilers)
	if err != nil {
		return nil, fmt.Errorf("hardware profiler: %w", err)
	}
	if err = hw.Start(); err != nil {
		_ = hw.Close()
		return nil, fmt.Errorf("hardware profiler: %w", err)
	}
	return func(w io.Writer) {
		defer hw.Close()
		var prof perf.HardwareProfile
		if err := hw.Profile(&prof); err != nil {
			// some counters are missing on virtual machines, report what we got
			logger.Warn("hardware profile incomplete", "error", err)
		}
		_ = hw.Stop()
		reportCounter(w, "cpu cycles", prof.CPUCycles)
		reportCounter(w, "instructions", prof.Instructions)
		reportCounter(w, "cache references", prof.CacheRefs)
		reportCounter(w, "cache misses", prof.CacheMisses)
		reportCounter(w, "branch instructions", prof.BranchInstr)
		reportCounter(w, "branch misses", prof.BranchMisses)
	}, nil
}

func reportCounter(w io.Writer, name string, v *uint64) {
	if v == nil {
		return
	}
	fmt.Fprintf(w, "%-20s %d\n", name, *v)
}
