package pluginfw

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/corectk/pluginfw/bundle"
	"github.com/corectk/pluginfw/configadmin"
	"github.com/corectk/pluginfw/fwerr"
	"github.com/corectk/pluginfw/metatype"
	"github.com/corectk/pluginfw/registry"
)

// Framework is the facade a host process builds once and uses to install,
// start, and stop plugins: it owns the shared Registry every plugin
// publishes services into, the ConfigAdmin every plugin's configuration
// flows through, and the Metatype registry describing those
// configurations' schemas.
type Framework struct {
	Registry    *registry.Registry
	ConfigAdmin *configadmin.Admin
	Metatype    *metatype.Registry

	logger *slog.Logger

	mu      sync.Mutex
	plugins map[string]*bundle.Plugin // keyed by manifest location
}

// New creates a Framework around the given components. Any of admin or
// mt may be nil if that component is not in use.
func New(reg *registry.Registry, admin *configadmin.Admin, mt *metatype.Registry) *Framework {
	return &Framework{
		Registry:    reg,
		ConfigAdmin: admin,
		Metatype:    mt,
		logger:      slog.Default(),
		plugins:     make(map[string]*bundle.Plugin),
	}
}

// WithLogger overrides the Framework's logger.
func (f *Framework) WithLogger(logger *slog.Logger) *Framework {
	f.logger = logger
	return f
}

// Install registers plug with the framework without starting it, and
// loads any metatype XML descriptors found under its manifest's
// MetatypeDir into the Metatype registry. It is an error to install two
// plugins that share a manifest location.
func (f *Framework) Install(plug *bundle.Plugin) error {
	manifest := plug.Manifest()
	location := manifest.Location
	if location == "" {
		return fwerr.InvalidArgumentf("pluginfw", "Install", "plugin manifest is missing a location")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.plugins[location]; dup {
		return fwerr.IllegalStatef("pluginfw", "Install", "a plugin is already installed at location %q", location)
	}

	if f.Metatype != nil {
		if err := f.loadMetatype(location, manifest); err != nil {
			return err
		}
	}

	f.plugins[location] = plug
	return nil
}

// loadMetatype opens every *.xml file under manifest's MetatypeDir and
// loads it into the Metatype registry under location. A manifest with no
// Dir (built in code rather than LoadManifest) or with no *.xml files under
// its MetatypeDir contributes nothing, which is not an error: metatype
// descriptions are optional. A blank MetatypeDir on a manifest with a Dir
// makes the *.xml files directly under Dir the descriptors.
func (f *Framework) loadMetatype(location string, manifest *bundle.Manifest) error {
	paths, err := manifest.MetatypeFiles()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	var docs []io.Reader
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return fwerr.IllegalStatef("pluginfw", "Install", "failed to open metatype descriptor %s: %v", path, err)
		}
		defer file.Close()
		docs = append(docs, file)
	}
	return f.Metatype.LoadPlugin(location, nil, docs...)
}

// Start resolves (if necessary) and starts an already-installed plugin.
func (f *Framework) Start(ctx context.Context, location string) error {
	plug, err := f.lookup(location)
	if err != nil {
		return err
	}
	if plug.State() == bundle.Installed {
		if err := plug.Resolve(); err != nil {
			return err
		}
	}
	return plug.Start(ctx)
}

// Stop stops the plugin at location and unregisters every service it
// still holds in the Registry, so a misbehaving activator that forgets
// to unregister its own services cannot leak them past its own lifetime.
func (f *Framework) Stop(ctx context.Context, location string) error {
	plug, err := f.lookup(location)
	if err != nil {
		return err
	}
	stopErr := plug.Stop(ctx)
	f.Registry.UnregisterAllForPlugin(location)
	return stopErr
}

// Uninstall stops location if still active, unregisters its services,
// drops its metatype bindings, and removes it from the framework.
func (f *Framework) Uninstall(ctx context.Context, location string) error {
	plug, err := f.lookup(location)
	if err != nil {
		return err
	}
	if plug.State() == bundle.Active || plug.State() == bundle.Starting {
		if err := f.Stop(ctx, location); err != nil {
			f.logger.Error("pluginfw: error stopping plugin during uninstall", "location", location, "error", err)
		}
	}
	if err := plug.Uninstall(); err != nil {
		return err
	}
	if f.Metatype != nil {
		f.Metatype.Unload(location)
	}

	f.mu.Lock()
	delete(f.plugins, location)
	f.mu.Unlock()
	return nil
}

// Plugin returns the installed plugin at location, or ok=false if none is
// installed there.
func (f *Framework) Plugin(location string) (*bundle.Plugin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plugins[location]
	return p, ok
}

// Plugins returns every currently installed plugin.
func (f *Framework) Plugins() []*bundle.Plugin {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*bundle.Plugin, 0, len(f.plugins))
	for _, p := range f.plugins {
		out = append(out, p)
	}
	return out
}

func (f *Framework) lookup(location string) (*bundle.Plugin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plugins[location]
	if !ok {
		return nil, fwerr.NoSuchServicef("pluginfw", "lookup", "no plugin installed at location %q", location)
	}
	return p, nil
}

// Shutdown stops and uninstalls every installed plugin in no particular
// order, then closes ConfigAdmin. Errors from individual plugins are
// collected but do not stop the sweep.
func (f *Framework) Shutdown(ctx context.Context) error {
	var errs []error
	for _, plug := range f.Plugins() {
		if err := f.Uninstall(ctx, plug.Manifest().Location); err != nil {
			errs = append(errs, err)
		}
	}
	if f.ConfigAdmin != nil {
		f.ConfigAdmin.Close()
	}
	if len(errs) > 0 {
		return fmt.Errorf("pluginfw: %d plugin(s) failed to shut down cleanly: %w", len(errs), errs[0])
	}
	return nil
}
