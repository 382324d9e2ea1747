package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/narratives/internal/config"
)

// StepName identifies a pipeline step for caching purposes.
type StepName string

const (
	StepPosts     StepName = "step1_posts"
	StepFiltered  StepName = "step2_filtered"
	StepRanked    StepName = "step3_ranked"
	StepAnchors   StepName = "step4_anchors"
	StepTrees     StepName = "step5_trees"
	StepReranked  StepName = "step6_reranked"
	StepAnalysis  StepName = "step7_analysis"
	StepCrossLink StepName = "step8_crosslinks"
	StepReport    StepName = "step9_report"
)

// Cache is a directory of per-step outputs and LLM exchanges.
type Cache struct {
	Dir string
}

// DefaultCache returns the cache rooted at the user cache directory.
// On macOS this is ~/Library/Caches/platform-narratives/
func DefaultCache() (Cache, error) {
	dir, err := config.CacheDir()
	if err != nil {
		return Cache{}, err
	}
	return Cache{Dir: dir}, nil
}

// stepDir returns the cache directory for a given step.
func (c Cache) stepDir(step StepName) string {
	return filepath.Join(c.Dir, string(step))
}

// generateFilename creates a timestamped filename with the given extension.
// Names sort chronologically.
func generateFilename(ext string) string {
	return time.Now().UTC().Format("2006-01-02T15-04-05.000000000") + ext
}

// SaveStepOutput saves JSON-serializable data to the step's cache directory.
// Returns the path to the saved file.
func SaveStepOutput[T any](c Cache, step StepName, data T) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step output: %w", err)
	}
	return c.write(step, jsonData, ".json")
}

// SaveTextOutput saves text content (e.g. an HTML report) to the step's cache
// directory. Returns the path to the saved file.
func (c Cache) SaveTextOutput(step StepName, content string, ext string) (string, error) {
	return c.write(step, []byte(content), ext)
}

func (c Cache) write(step StepName, data []byte, ext string) (string, error) {
	dir := c.stepDir(step)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step cache dir: %w", err)
	}

	path := filepath.Join(dir, generateFilename(ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}
	return path, nil
}

// LoadLatestStepOutput loads the most recent output from a step's cache directory.
// Returns the data, the filepath it was loaded from, and any error.
func LoadLatestStepOutput[T any](c Cache, step StepName) (T, string, error) {
	var zero T

	latestPath, err := c.LatestStepFile(step)
	if err != nil {
		return zero, "", err
	}

	data, err := LoadStepOutput[T](latestPath)
	if err != nil {
		return zero, "", err
	}

	return data, latestPath, nil
}

// LoadStepOutput loads JSON data from a specific file path.
func LoadStepOutput[T any](path string) (T, error) {
	var data T

	jsonData, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read step output: %w", err)
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal step output: %w", err)
	}

	return data, nil
}

// LatestStepFile returns the path to the most recent file in a step's cache directory.
func (c Cache) LatestStepFile(step StepName) (string, error) {
	dir := c.stepDir(step)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no cached output for step %s", step)
		}
		return "", err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return "", fmt.Errorf("no cached output for step %s", step)
	}

	return filepath.Join(dir, files[len(files)-1]), nil
}
