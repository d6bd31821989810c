package resources

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/smazurov/glyphnode/internal/config"
	"github.com/smazurov/glyphnode/internal/logging"
)

//go:embed all:defaults
var embedded embed.FS

const (
	animationsDir = "animations"
	callDir       = "call"
	csvExt        = ".csv"
)

// TunableFiles are the tunables file names looked up in a resources
// directory, in order.
var TunableFiles = []string{"tunables.toml", "tunables.yaml", "tunables.yml"}

var (
	// ErrNotFound is returned for unknown animations and tunable keys.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidName is returned for names that are not a single path element.
	ErrInvalidName = errors.New("invalid resource name")
)

// Tunables are the integer and boolean settings read by the engine.
type Tunables struct {
	SupportedPatternLengths []int           `toml:"supported_pattern_lengths" yaml:"supported_pattern_lengths" json:"supported_pattern_lengths"`
	Integers                map[string]int  `toml:"integers" yaml:"integers" json:"integers"`
	Booleans                map[string]bool `toml:"booleans" yaml:"booleans" json:"booleans"`
}

// Validate checks that lengths and integers are usable.
func (t Tunables) Validate() error {
	if len(t.SupportedPatternLengths) == 0 {
		return errors.New("supported_pattern_lengths is empty")
	}
	for _, n := range t.SupportedPatternLengths {
		if n <= 0 {
			return fmt.Errorf("supported pattern length %d must be positive", n)
		}
	}
	for key, v := range t.Integers {
		if v < 0 {
			return fmt.Errorf("integer %s = %d must not be negative", key, v)
		}
	}
	return nil
}

// merge overlays o on t. Keys missing in o keep their value from t.
func (t Tunables) merge(o Tunables) Tunables {
	out := Tunables{
		SupportedPatternLengths: slices.Clone(t.SupportedPatternLengths),
		Integers:                make(map[string]int, len(t.Integers)+len(o.Integers)),
		Booleans:                make(map[string]bool, len(t.Booleans)+len(o.Booleans)),
	}
	if len(o.SupportedPatternLengths) > 0 {
		out.SupportedPatternLengths = slices.Clone(o.SupportedPatternLengths)
	}
	for k, v := range t.Integers {
		out.Integers[k] = v
	}
	for k, v := range o.Integers {
		out.Integers[k] = v
	}
	for k, v := range t.Booleans {
		out.Booleans[k] = v
	}
	for k, v := range o.Booleans {
		out.Booleans[k] = v
	}
	return out
}

// Defaults returns the embedded resource tree.
func Defaults() fs.FS {
	sub, err := fs.Sub(embedded, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// LoadTunables reads the first tunables file present in fsys.
// It returns ErrNotFound when none exists.
func LoadTunables(fsys fs.FS) (Tunables, error) {
	for _, name := range TunableFiles {
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Tunables{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
		var t Tunables
		if err := config.Decode(path.Ext(name), data, &t); err != nil {
			return Tunables{}, fmt.Errorf("%s: %w", name, err)
		}
		return t, nil
	}
	return Tunables{}, fmt.Errorf("%w: tunables", ErrNotFound)
}

// LoadTunablesFile reads a tunables file from disk. It is the loader used by
// the tunables watcher.
func LoadTunablesFile(filename string) (Tunables, error) {
	var t Tunables
	if err := config.DecodeFile(filename, &t); err != nil {
		return Tunables{}, err
	}
	return t, nil
}

// Provider serves animations and tunables from a stack of file systems.
// Lookups try each layer in order, so a resources directory can override
// single files of the embedded defaults.
type Provider struct {
	layers []fs.FS
	dir    string
	logger *slog.Logger

	mu       sync.RWMutex
	base     Tunables
	tunables Tunables
}

// New creates a provider over layers, the first taking precedence.
// Tunables from every layer are merged.
func New(layers ...fs.FS) (*Provider, error) {
	if len(layers) == 0 {
		return nil, errors.New("resources: no layers")
	}
	p := &Provider{layers: layers, logger: logging.GetLogger("resources")}

	var merged Tunables
	for i := len(layers) - 1; i >= 0; i-- {
		t, err := LoadTunables(layers[i])
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged = merged.merge(t)
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tunables: %w", err)
	}
	p.base = merged
	p.tunables = merged
	return p, nil
}

// Open creates a provider for dir layered over the embedded defaults. An
// empty dir serves the defaults alone.
func Open(dir string) (*Provider, error) {
	if dir == "" {
		return New(Defaults())
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("resources directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resources directory %s is not a directory", dir)
	}
	p, err := New(os.DirFS(dir), Defaults())
	if err != nil {
		return nil, err
	}
	p.dir = dir
	return p, nil
}

// Dir returns the on-disk resources directory, or "" for defaults only.
func (p *Provider) Dir() string {
	return p.dir
}

// Animation opens animations/<name>.csv.
func (p *Provider) Animation(name string) (io.ReadCloser, error) {
	return p.open(animationsDir, name)
}

// CallAnimation opens call/<name>.csv.
func (p *Provider) CallAnimation(name string) (io.ReadCloser, error) {
	return p.open(callDir, name)
}

// Animations lists the names of the scripted animations.
func (p *Provider) Animations() ([]string, error) {
	return p.list(animationsDir)
}

// CallAnimations lists the names of the call animations.
func (p *Provider) CallAnimations() ([]string, error) {
	return p.list(callDir)
}

// Integer returns the named integer tunable.
func (p *Provider) Integer(key string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.tunables.Integers[key]
	if !ok {
		return 0, fmt.Errorf("%w: integer %s", ErrNotFound, key)
	}
	return v, nil
}

// Boolean returns the named boolean tunable.
func (p *Provider) Boolean(key string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.tunables.Booleans[key]
	if !ok {
		return false, fmt.Errorf("%w: boolean %s", ErrNotFound, key)
	}
	return v, nil
}

// SupportedPatternLengths returns the frame lengths the sink accepts.
func (p *Provider) SupportedPatternLengths() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.tunables.SupportedPatternLengths)
}

// Tunables returns a copy of the active tunables.
func (p *Provider) Tunables() Tunables {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Tunables{}.merge(p.tunables)
}

// SetTunables replaces the active tunables. Keys absent from t fall back to
// the values loaded at startup.
func (p *Provider) SetTunables(t Tunables) error {
	merged := p.base.merge(t)
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("invalid tunables: %w", err)
	}
	p.mu.Lock()
	p.tunables = merged
	p.mu.Unlock()
	p.logger.Info("Tunables updated",
		"pattern_lengths", merged.SupportedPatternLengths,
		"integers", len(merged.Integers),
		"booleans", len(merged.Booleans))
	return nil
}

func (p *Provider) open(dir, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	file := path.Join(dir, name+csvExt)
	for _, layer := range p.layers {
		f, err := layer.Open(file)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
}

func (p *Provider) list(dir string) ([]string, error) {
	seen := make(map[string]bool)
	for _, layer := range p.layers {
		matches, err := fs.Glob(layer, path.Join(dir, "*"+csvExt))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			seen[strings.TrimSuffix(path.Base(m), csvExt)] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
