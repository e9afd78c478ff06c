package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/logging"
	"github.com/claudekit-labs/claudekit/internal/manifest"
)

// subtree is a top-level source directory holding one component type.
type subtree struct {
	typ manifest.Type
	ext string
}

// knownSubtrees are the directories scanned under a source root.
var knownSubtrees = []subtree{
	{manifest.TypeCommand, ".md"},
	{manifest.TypeAgent, ".md"},
	{manifest.TypeHook, ".sh"},
}

// excludedNames are files and directories skipped during a scan.
var excludedNames = map[string]bool{
	"README.md":    true,
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// Discoverer scans source roots into registries, consulting a Cache first.
type Discoverer struct {
	cache    *Cache
	logger   *log.Logger
	embedded func() []*manifest.Component
}

// NewDiscoverer returns a Discoverer backed by cache. A nil cache gets a
// private one with the default TTL; a nil logger discards output.
func NewDiscoverer(cache *Cache, logger *log.Logger) *Discoverer {
	if cache == nil {
		cache = NewCache(DefaultTTL)
	}
	return &Discoverer{
		cache:    cache,
		logger:   logging.OrDiscard(logger),
		embedded: EmbeddedComponents,
	}
}

// Cache returns the cache the discoverer reads and fills.
func (d *Discoverer) Cache() *Cache {
	return d.cache
}

// Discover returns the registry for sourceRoot filtered by opts. A cached
// snapshot is reused while fresh unless opts.ForceRefresh is set. A missing
// source root yields an empty, valid registry. Files that fail extraction
// are logged and skipped.
func (d *Discoverer) Discover(ctx context.Context, sourceRoot string, opts DiscoverOptions) (*Registry, error) {
	if !opts.ForceRefresh {
		if reg, ok := d.cache.Get(sourceRoot); ok {
			d.logger.Debug("registry cache hit", "root", sourceRoot, "components", reg.Len())
			return reg.Filter(opts), nil
		}
	}

	reg, err := d.scan(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}
	d.cache.Put(sourceRoot, reg)

	return reg.Filter(opts), nil
}

// Invalidate drops the cached snapshot for sourceRoot.
func (d *Discoverer) Invalidate(sourceRoot string) {
	d.cache.Invalidate(sourceRoot)
}

func (d *Discoverer) scan(ctx context.Context, root string) (*Registry, error) {
	reg := newRegistry(root, d.cache.clock())

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		d.logger.Debug("source root not found, returning empty registry", "root", root)
		return reg, nil
	}

	for _, st := range knownSubtrees {
		if err := d.walkSubtree(ctx, reg, root, st); err != nil {
			return nil, err
		}
	}

	for _, c := range d.embedded() {
		if !reg.add(c) {
			d.logger.Debug("on-disk component overrides embedded one", "id", c.ID)
		}
	}

	reg.buildIndexes()
	d.logger.Debug("scanned source root", "root", root, "components", reg.Len())
	return reg, nil
}

func (d *Discoverer) walkSubtree(ctx context.Context, reg *Registry, root string, st subtree) error {
	dir := filepath.Join(root, st.typ.Dir())
	if _, err := os.Stat(dir); err != nil {
		return nil
	}

	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			d.logger.Warn("skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if excludedNames[entry.Name()] {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), st.ext) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		id := manifest.IDFromPath(st.typ, rel)

		c, err := manifest.Extract(path, st.typ, id)
		if err != nil {
			var pe *manifest.ParseError
			if errors.As(err, &pe) {
				d.logger.Warn("skipping component", "path", path, "err", pe)
				reg.Skipped = append(reg.Skipped, SkippedFile{Path: path, Reason: pe.Error()})
				return nil
			}
			return fmt.Errorf("extracting %s: %w", path, err)
		}

		if !reg.add(c) {
			d.logger.Warn("duplicate component id, keeping first", "id", id, "path", path)
			reg.Skipped = append(reg.Skipped, SkippedFile{Path: path, Reason: fmt.Sprintf("duplicate id %q", id)})
		}
		return nil
	})
}
