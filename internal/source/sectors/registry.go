package sectors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"finsight/internal/logger"
)

// FileConfig maps the sectors YAML file. The file is the injected,
// versioned sector universe the free market-data adapter searches; its
// absence of a sector is a normal not-found outcome, never a defect.
type FileConfig struct {
	Version int                 `yaml:"version"`
	Aliases map[string]string   `yaml:"aliases"`
	Sectors map[string][]string `yaml:"sectors"`
}

// Snapshot is an immutable view of the loaded universe. Reload is the
// version bump; callers keep working against the snapshot they took.
type Snapshot struct {
	Version     int64
	FileVersion int
	LoadedAt    time.Time
	Aliases     map[string]string
	Sectors     map[string][]string
}

const fileSchema = `{
	"type": "object",
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"aliases": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"sectors": {
			"type": "object",
			"additionalProperties": {
				"type": "array",
				"items": {"type": "string"}
			}
		}
	},
	"required": ["version", "sectors"]
}`

var compiledSchema = jsonschema.MustCompileString("sectors.json", fileSchema)

// Registry loads the sector universe and hot-reloads it when the file
// changes on disk.
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sector registry requires a file path")
	}
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading sector file failed: %w", err)
	}
	r.v = v
	v.OnConfigChange(func(fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("sector registry reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current universe.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Resolve maps a user-facing industry term ("tech", "banking") to its
// canonical sector name and ticker list.
func (r *Registry) Resolve(name string) (string, []string, bool) {
	snap := r.Snapshot()
	key := strings.TrimSpace(strings.ToLower(name))
	if key == "" {
		return "", nil, false
	}
	if canonical, ok := snap.Aliases[key]; ok {
		key = strings.ToLower(canonical)
	}
	for sector, tickers := range snap.Sectors {
		if strings.ToLower(sector) == key {
			return sector, append([]string(nil), tickers...), true
		}
	}
	return "", nil, false
}

// Universe returns every ticker in the file, deduplicated and sorted.
func (r *Registry) Universe() []string {
	snap := r.Snapshot()
	seen := make(map[string]bool)
	var out []string
	for _, tickers := range snap.Sectors {
		for _, t := range tickers {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) reload() error {
	cfg, err := readSectorFile(r.path)
	if err != nil {
		return err
	}
	aliases := make(map[string]string, len(cfg.Aliases))
	for alias, sector := range cfg.Aliases {
		aliases[strings.ToLower(strings.TrimSpace(alias))] = strings.TrimSpace(sector)
	}
	sectors := make(map[string][]string, len(cfg.Sectors))
	for sector, tickers := range cfg.Sectors {
		normalized := make([]string, 0, len(tickers))
		for _, t := range tickers {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t != "" {
				normalized = append(normalized, t)
			}
		}
		sectors[strings.TrimSpace(sector)] = normalized
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:     r.snapshot.Version + 1,
		FileVersion: cfg.Version,
		LoadedAt:    time.Now(),
		Aliases:     aliases,
		Sectors:     sectors,
	}
	r.mu.Unlock()
	logger.Infof("sector registry loaded %d sectors (file version %d) from %s",
		len(sectors), cfg.Version, filepath.Base(r.path))
	return nil
}

func readSectorFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("reading sector file failed: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return FileConfig{}, fmt.Errorf("parsing sector file failed: %w", err)
	}
	if err := compiledSchema.Validate(toJSONValue(generic)); err != nil {
		return FileConfig{}, fmt.Errorf("sector file rejected by schema: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parsing sector file failed: %w", err)
	}
	return cfg, nil
}

// toJSONValue bridges YAML's map[string]any shapes into the plain JSON
// value form the schema validator expects.
func toJSONValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
