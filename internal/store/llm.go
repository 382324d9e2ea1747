package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const llmDir = "llm"

// LLMExchange is one prompt/response round trip with a language model
type LLMExchange struct {
	Timestamp time.Time     `json:"timestamp"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Task      string        `json:"task"` // "classify" or "reply_chain"
	Prompt    string        `json:"prompt"`
	Response  string        `json:"response"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Error     string        `json:"error,omitempty"`
}

// LLMCacheDir returns the directory holding exchanges for task, or the root of
// the exchange cache when task is empty.
func (c Cache) LLMCacheDir(task string) string {
	return filepath.Join(c.Dir, llmDir, task)
}

// SaveLLMExchange writes ex under its task's directory and returns the path.
func (c Cache) SaveLLMExchange(ex LLMExchange) (string, error) {
	task := ex.Task
	if task == "" {
		task = "other"
	}
	data, err := json.MarshalIndent(ex, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal LLM exchange: %w", err)
	}
	return c.write(StepName(filepath.Join(llmDir, task)), data, ".json")
}

// LLMExchanges loads the cached exchanges for task, oldest first. A task with
// nothing cached yields no exchanges and no error.
func (c Cache) LLMExchanges(task string) ([]LLMExchange, error) {
	entries, err := os.ReadDir(c.LLMCacheDir(task))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []LLMExchange
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ex, err := LoadStepOutput[LLMExchange](filepath.Join(c.LLMCacheDir(task), e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}
