package framegraph

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// ExecuteContext carries the long lived collaborators a graph runs against.
type ExecuteContext struct {
	Device metadata.Device
	// Cache may be nil, released objects are then destroyed right away.
	Cache     *TransientResourceCache
	Pipelines PipelineSource
	Metrics   *core.Metrics
}

type PassResult struct {
	Pass PassID
	Name string
	Err  error
}

// FrameReport tells which passes ran and which failed during one Execute.
type FrameReport struct {
	Label      string
	Passes     []PassResult
	ReleaseErr error
}

// Err joins every pass error and the final release error.
func (r *FrameReport) Err() error {
	errs := make([]error, 0, len(r.Passes)+1)
	for _, p := range r.Passes {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	if r.ReleaseErr != nil {
		errs = append(errs, r.ReleaseErr)
	}
	return errors.Join(errs...)
}

// Failed lists the names of the passes that reported an error.
func (r *FrameReport) Failed() []string {
	var names []string
	for _, p := range r.Passes {
		if p.Err != nil {
			names = append(names, p.Name)
		}
	}
	return names
}

// Execute runs the compiled device passes in order. A failing pass is logged
// and reported while the next passes still run. Once done the table is
// emptied into the transient cache and the graph is reset.
func (fg *FrameGraph) Execute(ectx ExecuteContext) (*FrameReport, error) {
	if !fg.compiled {
		return nil, core.ErrGraphNotCompiled
	}
	if ectx.Device == nil {
		return nil, fmt.Errorf("frame graph %s: execute without a device", fg.label)
	}

	table := NewResourceTable(ectx.Device, ectx.Cache, ectx.Metrics)
	report := &FrameReport{
		Label:  fg.label,
		Passes: make([]PassResult, 0, len(fg.devicePasses)),
	}

	for _, dp := range fg.devicePasses {
		err := fg.executePass(dp, table, ectx)
		if err != nil {
			core.LogError("frame graph %s: %s", fg.label, err.Error())
		}
		ectx.Metrics.PassExecuted(err != nil)
		report.Passes = append(report.Passes, PassResult{Pass: dp.Pass, Name: dp.Name, Err: err})
	}

	if err := table.ReleaseAll(); err != nil {
		core.LogError("frame graph %s: release: %s", fg.label, err.Error())
		report.ReleaseErr = err
	}
	if ectx.Cache != nil {
		ectx.Metrics.CachePooled(ectx.Cache.Len())
	}
	ectx.Metrics.PassCulled(fg.stats.Culled)

	fg.Reset()
	return report, nil
}

func (fg *FrameGraph) executePass(dp *DevicePass, table *ResourceTable, ectx ExecuteContext) error {
	ctx := &RenderContext{
		graph:     fg,
		pass:      dp,
		table:     table,
		device:    ectx.Device,
		pipelines: ectx.Pipelines,
	}

	var runErr error
	var cb metadata.CommandBuffer
	if err := dp.Begin(table); err != nil {
		runErr = err
	} else {
		cb, runErr = dp.Run(ctx)
	}
	endErr := dp.End(ctx, cb)
	return errors.Join(runErr, endErr)
}
