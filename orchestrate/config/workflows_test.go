package config_test

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/flow/orchestrate/config"
)

func TestWorkflowConfig_DefaultWorkflowConfig(t *testing.T) {
	cfg := config.DefaultWorkflowConfig()

	if cfg.Observer != "slog" {
		t.Errorf("DefaultWorkflowConfig().Observer = %v, want %v", cfg.Observer, "slog")
	}
	if cfg.GracePeriod.Std() != 5*time.Second {
		t.Errorf("DefaultWorkflowConfig().GracePeriod = %v, want %v", cfg.GracePeriod, 5*time.Second)
	}
	if !cfg.Parallel.FailFast() {
		t.Error("DefaultWorkflowConfig().Parallel.FailFast() = false, want true")
	}
	if !cfg.Branch.FailFast() {
		t.Error("DefaultWorkflowConfig().Branch.FailFast() = false, want true")
	}
	if cfg.Parallel.WorkerCap != 16 {
		t.Errorf("DefaultWorkflowConfig().Parallel.WorkerCap = %v, want %v", cfg.Parallel.WorkerCap, 16)
	}
}

func TestParallelConfig_FailFastNilDefaultsTrue(t *testing.T) {
	var cfg config.ParallelConfig
	if err := json.Unmarshal([]byte(`{"max_workers":4}`), &cfg); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if !cfg.FailFast() {
		t.Error("FailFast() = false for omitted fail_fast, want true")
	}
	if cfg.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %v, want %v", cfg.MaxWorkers, 4)
	}
}

func TestWorkflowConfig_MergeYAML(t *testing.T) {
	data := []byte(`
observer: noop
grace_period: 250ms
strict_branches: true
chain:
  capture_intermediate_states: true
parallel:
  fail_fast: false
  max_workers: 2
branch:
  max_concurrency: 3
`)

	var loaded config.WorkflowConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}

	cfg := config.DefaultWorkflowConfig()
	cfg.Merge(&loaded)

	if cfg.Observer != "noop" {
		t.Errorf("Observer = %v, want %v", cfg.Observer, "noop")
	}
	if cfg.GracePeriod.Std() != 250*time.Millisecond {
		t.Errorf("GracePeriod = %v, want %v", cfg.GracePeriod, 250*time.Millisecond)
	}
	if !cfg.StrictBranches {
		t.Error("StrictBranches = false, want true")
	}
	if !cfg.Chain.CaptureIntermediateStates {
		t.Error("Chain.CaptureIntermediateStates = false, want true")
	}
	if cfg.Parallel.FailFast() {
		t.Error("Parallel.FailFast() = true, want false")
	}
	if cfg.Parallel.MaxWorkers != 2 {
		t.Errorf("Parallel.MaxWorkers = %v, want %v", cfg.Parallel.MaxWorkers, 2)
	}
	if cfg.Parallel.WorkerCap != 16 {
		t.Errorf("Parallel.WorkerCap = %v, want default %v", cfg.Parallel.WorkerCap, 16)
	}
	if cfg.Branch.MaxConcurrency != 3 {
		t.Errorf("Branch.MaxConcurrency = %v, want %v", cfg.Branch.MaxConcurrency, 3)
	}
	if !cfg.Branch.FailFast() {
		t.Error("Branch.FailFast() = false, want true (not set in source)")
	}
}

func TestDuration_JSON(t *testing.T) {
	tests := []struct {
		name    string
		jsonStr string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", jsonStr: `"1.5s"`, want: 1500 * time.Millisecond},
		{name: "nanoseconds", jsonStr: `1000`, want: time.Microsecond},
		{name: "invalid", jsonStr: `"soon"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d config.Duration
			err := json.Unmarshal([]byte(tt.jsonStr), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("json.Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && d.Std() != tt.want {
				t.Errorf("Duration = %v, want %v", d.Std(), tt.want)
			}
		})
	}

	out, err := json.Marshal(config.Duration(2 * time.Second))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(out) != `"2s"` {
		t.Errorf("json.Marshal(Duration) = %s, want %q", out, `"2s"`)
	}
}
