package main

import (
	"fmt"
	"io"

	"github.com/born-ml/lookback/internal/backend/cpu"
	"github.com/born-ml/lookback/internal/backend/webgpu"
	"github.com/born-ml/lookback/internal/parallel"
	"github.com/born-ml/lookback/internal/scan"
)

func runInfo(w io.Writer) error {
	c := palette(w)
	host := cpu.New(parallel.DefaultConfig())
	info := host.Info()
	fmt.Fprintf(w, "%s %s\n", c.head.Sprint("cpu"), host.Name())
	fmt.Fprintf(w, "  %d logical CPUs, features: %s\n", info.NumCPU, joinOr(info.Features(), "none"))

	fmt.Fprintf(w, "%s ", c.head.Sprint("webgpu"))
	adapters, err := webgpu.ListAdapters()
	if err != nil {
		fmt.Fprintln(w, c.dim.Sprintf("unavailable (%v)", err))
	} else {
		fmt.Fprintf(w, "%d adapter(s)\n", len(adapters))
		for _, a := range adapters {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}

	def := scan.DefaultOptions()
	fmt.Fprintf(w, "%s block %d, %d groups per pass, %s, %s reducer, %s wait, stall timeout %v\n",
		c.head.Sprint("defaults"), def.BlockCapacity, def.MaxGroupsPerPass, def.Strategy, def.Reducer, def.Wait, def.StallTimeout)
	return nil
}
