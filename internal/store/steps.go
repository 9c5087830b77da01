package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// StepName identifies a pipeline step for caching purposes.
type StepName string

const (
	StepTimeline StepName = "step1_timeline"
	StepHarvest  StepName = "step2_harvest"
	StepReport   StepName = "step3_report"
)

// Steps lists the cached steps in pipeline order.
var Steps = []StepName{StepTimeline, StepHarvest, StepReport}

// ParseStep accepts a step by its short name ("harvest") or full name.
func ParseStep(s string) (StepName, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, step := range Steps {
		if s == string(step) || s == step.Short() {
			return step, nil
		}
	}
	return "", fmt.Errorf("unknown step %q", s)
}

// Short drops the ordinal prefix: "step2_harvest" becomes "harvest".
func (s StepName) Short() string {
	_, short, ok := strings.Cut(string(s), "_")
	if !ok {
		return string(s)
	}
	return short
}

// ErrNoStepOutput means a step has not been cached yet.
var ErrNoStepOutput = errors.New("no cached output")

// stampLayout sorts lexically in time order.
const stampLayout = "2006-01-02T15-04-05"

// StepCache writes per-step debug snapshots under a root directory, one
// subdirectory per step and one file per save.
type StepCache struct {
	root string
	now  func() time.Time
}

// NewStepCache creates a cache rooted at dir.
func NewStepCache(dir string) *StepCache {
	return &StepCache{root: dir, now: time.Now}
}

// Root returns the cache directory.
func (c *StepCache) Root() string {
	return c.root
}

// put writes one snapshot named <stamp>[_label]<ext> and returns its path.
func (c *StepCache) put(step StepName, label, ext string, content []byte) (string, error) {
	dir := filepath.Join(c.root, string(step))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step cache dir: %w", err)
	}

	name := c.now().UTC().Format(stampLayout)
	if label != "" {
		name += "_" + label
	}
	path := filepath.Join(dir, name+ext)

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s snapshot: %w", step.Short(), err)
	}
	return path, nil
}

// SaveStepOutput snapshots data as indented JSON. label keeps snapshots from
// the same second apart, typically a post id.
func SaveStepOutput[T any](c *StepCache, step StepName, label string, data T) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s snapshot: %w", step.Short(), err)
	}
	return c.put(step, label, ".json", content)
}

// SaveTextOutput snapshots plain text such as a compiled report.
func (c *StepCache) SaveTextOutput(step StepName, label, content, ext string) (string, error) {
	return c.put(step, label, ext, []byte(content))
}

// LatestStepFile returns the newest snapshot of step. Filenames start with a
// sortable stamp, so the lexically last name is the newest.
func (c *StepCache) LatestStepFile(step StepName) (string, error) {
	dir := filepath.Join(c.root, string(step))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w for step %s", ErrNoStepOutput, step.Short())
	}
	if err != nil {
		return "", err
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w for step %s", ErrNoStepOutput, step.Short())
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// LoadLatestStepOutput decodes the newest JSON snapshot of step and returns
// it with the file it came from.
func LoadLatestStepOutput[T any](c *StepCache, step StepName) (T, string, error) {
	var data T

	path, err := c.LatestStepFile(step)
	if err != nil {
		return data, "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return data, path, nil
}
