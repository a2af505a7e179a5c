// Package prompts loads the externalized LLM prompt templates behind the
// planning, refinement, and review services. Templates live in JSON files
// embedded at compile time, one map of prompt name to template per file.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// fileCache memoizes parsed prompt files so each is decoded once.
type fileCache struct {
	mu    sync.Mutex
	files map[string]map[string]string
}

var cache = &fileCache{files: make(map[string]map[string]string)}

func (c *fileCache) load(filename string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prompts, ok := c.files[filename]; ok {
		return prompts, nil
	}

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}
	c.files[filename] = prompts
	return prompts, nil
}

// Get retrieves a prompt template by file and key, e.g.
// Get("planning.json", "storyboard-brief").
func Get(filename, key string) (string, error) {
	prompts, err := cache.load(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts required at initialization time; a missing
// template is a packaging error, so it panics.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format substitutes {{.Key}} placeholders with values from data. Keys
// absent from data leave their placeholder in place.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, fmt.Sprintf("{{.%s}}", key), value)
	}
	return result
}

// List returns the prompt keys available in a file.
func List(filename string) ([]string, error) {
	prompts, err := cache.load(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	return keys, nil
}

// ClearCache drops all cached files. Only tests need it.
func ClearCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.files = make(map[string]map[string]string)
}
