package resources

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/smazurov/glyphnode/internal/config"
)

// TunablesPath returns the tunables file of the resources directory. When
// none exists yet the TOML name is returned so a later create is picked up.
func (p *Provider) TunablesPath() string {
	if p.dir == "" {
		return ""
	}
	for _, name := range TunableFiles {
		candidate := filepath.Join(p.dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(p.dir, TunableFiles[0])
}

// Watch starts hot reloading of the tunables file. Invalid files are logged
// and the previous tunables stay active.
func (p *Provider) Watch(opts ...config.WatcherOption[Tunables]) (*config.Watcher[Tunables], error) {
	file := p.TunablesPath()
	if file == "" {
		return nil, errors.New("resources: no directory to watch")
	}

	w := config.NewConfigWatcher(file, LoadTunablesFile, p.logger, opts...)
	w.OnReload(func(t Tunables) {
		if err := p.SetTunables(t); err != nil {
			p.logger.Warn("Rejected tunables reload", "path", file, "error", err)
		}
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
