/*
	Package pipeline runs an ordered list of cleanup filters described by a JSON document:

	{
		"name": "grain cleanup",
		"structure": "scan-042",
		"output": "scan-042-clean",
		"filters": [
			{"filter": "min_size", "args": {"min_allowed_feature_size": 16, ...}},
			{"filter": "min_neighbors", "args": {"min_num_neighbors": 2, ...}}
		]
	}

	Documents are validated against a JSON schema before any filter is built.
*/
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/twinj/uuid"

	"github.com/janelia-flyem/voxfeat/cleanup"
	"github.com/janelia-flyem/voxfeat/datastructure"
	"github.com/janelia-flyem/voxfeat/voxfeat"
)

var registry = map[string]func() cleanup.Filter{
	"min_neighbors":   func() cleanup.Filter { return new(cleanup.MinNeighbors) },
	"min_size":        func() cleanup.Filter { return new(cleanup.RemoveMinimumSizeFeatures) },
	"identify_sample": func() cleanup.Filter { return new(cleanup.IdentifySample) },
}

// FilterNames returns the names usable in a pipeline document, sorted.
func FilterNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func pipelineSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = jsonschema.CompileString("pipeline.json", schemaJSON)
	})
	return compiledSchema, compileErr
}

type stepDoc struct {
	Filter string          `json:"filter"`
	Args   json.RawMessage `json:"args"`
}

type document struct {
	Name      string    `json:"name"`
	Structure string    `json:"structure"`
	Output    string    `json:"output"`
	Filters   []stepDoc `json:"filters"`
}

// Pipeline is a validated, ready to run sequence of filters.
type Pipeline struct {
	Name string

	// Structure names the stored DataStructure to process and Output the name under
	// which the result is saved.  Output defaults to Structure.
	Structure string
	Output    string

	Filters []cleanup.Filter
}

// Parse validates a pipeline document and builds its filters.
func Parse(data []byte) (*Pipeline, error) {
	sch, err := pipelineSchema()
	if err != nil {
		return nil, fmt.Errorf("bad pipeline schema: %v", err)
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("pipeline is not valid JSON: %v", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %v", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	p := &Pipeline{Name: doc.Name, Structure: doc.Structure, Output: doc.Output}
	if p.Output == "" {
		p.Output = p.Structure
	}
	for i, step := range doc.Filters {
		newFilter, found := registry[step.Filter]
		if !found {
			return nil, fmt.Errorf("step %d: unknown filter %q", i+1, step.Filter)
		}
		f := newFilter()
		dec := json.NewDecoder(bytes.NewReader(step.Args))
		dec.DisallowUnknownFields()
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("step %d (%s): bad arguments: %v", i+1, step.Filter, err)
		}
		p.Filters = append(p.Filters, f)
	}
	return p, nil
}

// Load reads and parses a pipeline document from a file.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return p, nil
}

// SetWorkers sets the donor scan concurrency of every filter that supports it.
func (p *Pipeline) SetWorkers(n int) {
	for _, f := range p.Filters {
		if ws, ok := f.(interface{ SetWorkers(int) }); ok {
			ws.SetWorkers(n)
		}
	}
}

// StepReport describes one executed filter.
type StepReport struct {
	Filter   string
	Warnings []string
	Elapsed  time.Duration
}

// RunReport describes a pipeline run.
type RunReport struct {
	ID    string
	Steps []StepReport
}

// Run preflights and executes each filter in order against ds, stopping at the
// first error.  Filters already executed are not rolled back.
func (p *Pipeline) Run(ctx context.Context, ds *datastructure.DataStructure, handler voxfeat.MessageHandler) (*RunReport, error) {
	report := &RunReport{ID: uuid.NewV4().String()}
	msgr := voxfeat.Messenger{Handler: handler}
	timedLog := voxfeat.NewTimeLog()
	voxfeat.Infof("Starting pipeline %q run %s with %d filters\n", p.Name, report.ID, len(p.Filters))

	for i, f := range p.Filters {
		if ctx.Err() != nil {
			return report, fmt.Errorf("%w: %w", cleanup.ErrCancelled, context.Cause(ctx))
		}
		stepLog := voxfeat.NewTimeLog()
		warnings, err := f.Preflight(ds)
		if err != nil {
			return report, fmt.Errorf("step %d (%s) preflight: %w", i+1, f.Name(), err)
		}
		for _, w := range warnings {
			voxfeat.Warningf("%s: %s\n", f.Name(), w)
			msgr.Send("Warning: %s", w)
		}
		if err := f.Execute(ctx, ds, handler); err != nil {
			return report, fmt.Errorf("step %d (%s): %w", i+1, f.Name(), err)
		}
		report.Steps = append(report.Steps, StepReport{Filter: f.Name(), Warnings: warnings, Elapsed: stepLog.Elapsed()})
		stepLog.Infof("Run %s step %d: %s", report.ID, i+1, f.Name())
	}
	timedLog.Infof("Finished pipeline %q run %s", p.Name, report.ID)
	return report, nil
}
