// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/whats-next/internal/pipeline"
)

// RunFile is the on-disk record of one request and its results.
type RunFile struct {
	Next     *pipeline.NextRequest   `yaml:"next,omitempty"`
	Digest   *pipeline.DigestRequest `yaml:"digest,omitempty"`
	Response *pipeline.Response      `yaml:"response"`
	Summary  RunSummary              `yaml:"summary"`
}

// RunSummary stores result statistics and a timestamp.
type RunSummary struct {
	Results      int       `yaml:"results"`
	Candidates   int       `yaml:"candidates"`
	SourceErrors []string  `yaml:"source_errors,omitempty"`
	Timestamp    time.Time `yaml:"timestamp"`
}

// NewRunFile records resp together with the request that produced it.
// Exactly one of next and digest should be set.
func NewRunFile(next *pipeline.NextRequest, digest *pipeline.DigestRequest, resp *pipeline.Response) RunFile {
	rf := RunFile{
		Next:     next,
		Digest:   digest,
		Response: resp,
		Summary: RunSummary{
			Results:    len(resp.Results),
			Candidates: resp.Candidates,
			Timestamp:  time.Now().UTC(),
		},
	}
	for _, s := range resp.Sources {
		if s.Error != "" {
			rf.Summary.SourceErrors = append(rf.Summary.SourceErrors, s.Source+" "+s.Input+": "+s.Error)
		}
	}
	return rf
}

// SaveRun writes rf to path as YAML.
func SaveRun(path string, rf RunFile) error {
	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling run file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRun reads a run file saved by SaveRun.
func LoadRun(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	if rf.Response == nil {
		return nil, fmt.Errorf("run file %s has no response", path)
	}
	return &rf, nil
}
