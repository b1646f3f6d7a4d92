package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bankclean/bankclean/internal/config"
)

const DefaultPath = "~/.bankclean/state.yaml"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// State records the most recent pipeline run.
type State struct {
	LastUpdated time.Time `yaml:"last_updated" json:"last_updated"`
	LastRun     *Run      `yaml:"last_run,omitempty" json:"last_run,omitempty"`
	// History keeps the ids of previous runs, newest first.
	History []string `yaml:"history,omitempty" json:"history,omitempty"`
}

// Run is one pipeline execution.
type Run struct {
	ID               string    `yaml:"id" json:"id"`
	Status           string    `yaml:"status" json:"status"`
	StartedAt        time.Time `yaml:"started_at" json:"started_at"`
	CompletedAt      time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
	OutputDir        string    `yaml:"output_dir" json:"output_dir"`
	ReportPath       string    `yaml:"report_path,omitempty" json:"report_path,omitempty"`
	ValidationStatus string    `yaml:"validation_status,omitempty" json:"validation_status,omitempty"`
	ArtifactURI      string    `yaml:"artifact_uri,omitempty" json:"artifact_uri,omitempty"`
	Error            string    `yaml:"error,omitempty" json:"error,omitempty"`
}

// historySize bounds State.History.
const historySize = 20

// Load reads the state from disk. A missing file yields an empty state.
func Load(path string) (*State, error) {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	s := &State{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	return s, nil
}

// Save writes the state to disk.
func (s *State) Save(path string) error {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	s.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// New creates an empty state.
func New() *State {
	return &State{LastUpdated: time.Now()}
}

// Record stores r as the last run. A run id seen for the first time is
// pushed onto the history.
func (s *State) Record(r Run) {
	if s.LastRun == nil || s.LastRun.ID != r.ID {
		s.History = append([]string{r.ID}, s.History...)
		if len(s.History) > historySize {
			s.History = s.History[:historySize]
		}
	}
	s.LastRun = &r
}
