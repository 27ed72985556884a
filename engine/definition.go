package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// Definition describes a workflow by the catalog names of its parts.
//
// Example YAML:
//
//	id: conditional-content-workflow
//	description: Routes content to different processing based on characteristics
//	input: content.article
//	output: content.processed
//	stages:
//	  - then: content-assessment
//	  - branch:
//	      - when: content.short
//	        step: quick-processing
//	      - when: content.long-or-complex
//	        step: deep-processing
//	    policy: collect_all
type Definition struct {
	ID          string            `json:"id" yaml:"id"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Input       string            `json:"input" yaml:"input"`
	Output      string            `json:"output" yaml:"output"`
	Stages      []StageDefinition `json:"stages" yaml:"stages"`
}

// StageDefinition sets exactly one of Then, Branch or Parallel.
type StageDefinition struct {
	Then     string           `json:"then,omitempty" yaml:"then,omitempty"`
	Branch   []CaseDefinition `json:"branch,omitempty" yaml:"branch,omitempty"`
	Parallel []string         `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	// Policy is "fail_fast" or "collect_all"; empty uses the workflow config.
	Policy         string `json:"policy,omitempty" yaml:"policy,omitempty"`
	MaxConcurrency int    `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty"`
}

type CaseDefinition struct {
	When string `json:"when" yaml:"when"`
	Step string `json:"step" yaml:"step"`
}

// LoadDefinition reads a JSON or YAML definition file.
func LoadDefinition(filename string) (*Definition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}
	return ParseDefinition(filename, data)
}

// ParseDefinition decodes a definition, choosing JSON or YAML by the
// extension of filename.
func ParseDefinition(filename string, data []byte) (*Definition, error) {
	var def Definition
	if err := decode(filename, data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition file %s: %w", filename, err)
	}
	return &def, nil
}

// Build resolves every name in def against catalog and returns the
// committed workflow. Every unresolved name is reported, joined with any
// commit errors.
func Build(def *Definition, catalog *Catalog, opts ...workflows.Option) (*workflows.Workflow, error) {
	var errs []error
	structural := func(stage int, err error, detail string) {
		errs = append(errs, &workflows.StructuralError{
			WorkflowID: def.ID,
			Stage:      stage,
			Detail:     detail,
			Err:        err,
		})
	}

	input, ok := catalog.Contract(def.Input)
	if !ok {
		structural(-1, ErrUnknownContract, fmt.Sprintf("input %q", def.Input))
	}
	output, ok := catalog.Contract(def.Output)
	if !ok {
		structural(-1, ErrUnknownContract, fmt.Sprintf("output %q", def.Output))
	}

	step := func(stage int, id string) *workflows.Step {
		s, ok := catalog.Step(id)
		if !ok {
			structural(stage, workflows.ErrUnknownStep, fmt.Sprintf("step %q", id))
		}
		return s
	}

	if def.Description != "" {
		opts = append(opts, workflows.WithWorkflowDescription(def.Description))
	}
	wf := workflows.New(def.ID, input, output, opts...)

	for i, sd := range def.Stages {
		stageOpts, err := sd.options()
		if err != nil {
			structural(i, ErrInvalidDefinition, err.Error())
			continue
		}

		switch {
		case sd.Then != "" && sd.Branch == nil && sd.Parallel == nil:
			if len(stageOpts) > 0 {
				structural(i, ErrInvalidDefinition, "policy and max_concurrency apply only to branch and parallel stages")
				continue
			}
			wf.Then(step(i, sd.Then))

		case sd.Branch != nil && sd.Then == "" && sd.Parallel == nil:
			cases := make([]workflows.BranchCase, 0, len(sd.Branch))
			for _, cd := range sd.Branch {
				p, ok := catalog.Predicate(cd.When)
				if !ok {
					structural(i, ErrUnknownPredicate, fmt.Sprintf("predicate %q", cd.When))
				}
				cases = append(cases, workflows.When(p, step(i, cd.Step)))
			}
			wf.Branch(cases, stageOpts...)

		case sd.Parallel != nil && sd.Then == "" && sd.Branch == nil:
			steps := make([]*workflows.Step, 0, len(sd.Parallel))
			for _, id := range sd.Parallel {
				steps = append(steps, step(i, id))
			}
			wf.Parallel(steps, stageOpts...)

		default:
			structural(i, ErrInvalidDefinition, "stage must set exactly one of then, branch or parallel")
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := wf.Commit(); err != nil {
		return nil, err
	}
	return wf, nil
}

func (sd StageDefinition) options() ([]workflows.StageOption, error) {
	var opts []workflows.StageOption
	switch sd.Policy {
	case "":
	case "fail_fast":
		opts = append(opts, workflows.WithErrorPolicy(workflows.FailFast))
	case "collect_all":
		opts = append(opts, workflows.WithErrorPolicy(workflows.CollectAll))
	default:
		return nil, fmt.Errorf("unknown policy %q", sd.Policy)
	}
	if sd.MaxConcurrency > 0 {
		opts = append(opts, workflows.WithMaxConcurrency(sd.MaxConcurrency))
	}
	return opts, nil
}
