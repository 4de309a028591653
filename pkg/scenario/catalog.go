package scenario

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a scenario slug is unknown.
var ErrNotFound = errors.New("scenario not found")

// Catalog is the process-wide registry of scenario documents. Base documents
// are keyed by slug, locale-merged documents by "slug.locale". It is built
// once at startup and rebuilt only by an explicit Reload.
type Catalog struct {
	dir    string
	logger *slog.Logger

	mu        sync.RWMutex
	base      map[string]*Scenario
	localized map[string]*Scenario
}

// NewCatalog creates an empty catalog reading from dir. Call Reload to populate it.
func NewCatalog(dir string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		dir:       dir,
		logger:    logger,
		base:      make(map[string]*Scenario),
		localized: make(map[string]*Scenario),
	}
}

// LoadCatalog creates a catalog and loads every document in dir.
func LoadCatalog(dir string, logger *slog.Logger) (*Catalog, error) {
	c := NewCatalog(dir, logger)
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the scenario directory and atomically swaps the cache.
// Base files are named <slug>.yml; overlays are named <slug>.<locale>.yml.
func (c *Catalog) Reload() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	base := make(map[string]*Scenario)
	overlays := make(map[string]*Scenario)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		stem := strings.TrimSuffix(name, ext)

		doc, err := ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			return err
		}

		if slug, locale, ok := strings.Cut(stem, "."); ok {
			overlays[slug+"."+locale] = doc
			continue
		}
		if doc.Slug == "" {
			doc.Slug = stem
		}
		if _, dup := base[doc.Slug]; dup {
			return fmt.Errorf("duplicate scenario slug %q in %s", doc.Slug, name)
		}
		base[doc.Slug] = doc
	}

	localized := make(map[string]*Scenario, len(overlays))
	for key, overlay := range overlays {
		slug, locale, _ := strings.Cut(key, ".")
		b, ok := base[slug]
		if !ok {
			c.logger.Warn("Skipping locale overlay without base scenario", "scenario", slug, "locale", locale)
			continue
		}
		for _, problem := range ValidateOverlay(b, overlay) {
			c.logger.Warn("Ignoring overlay entry", "scenario", slug, "locale", locale, "problem", problem)
		}
		merged := Merge(b, overlay)
		merged.Locale = locale
		localized[key] = merged
	}

	c.mu.Lock()
	c.base = base
	c.localized = localized
	c.mu.Unlock()

	c.logger.Info("Scenario catalog loaded", "dir", c.dir, "scenarios", len(base), "overlays", len(localized))
	return nil
}

// ReadFile parses a single scenario YAML document.
func ReadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// Find returns the document for slug merged with the locale overlay when one
// exists, falling back to the base document otherwise.
func (c *Catalog) Find(slug, locale string) (*Scenario, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if locale != "" {
		if s, ok := c.localized[slug+"."+locale]; ok {
			return s, true
		}
	}
	s, ok := c.base[slug]
	return s, ok
}

// Get is Find for callers that need an error for unknown slugs.
func (c *Catalog) Get(slug, locale string) (*Scenario, error) {
	s, ok := c.Find(slug, locale)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return s, nil
}

// All returns every base document sorted by slug.
func (c *Catalog) All() []*Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Scenario, 0, len(c.base))
	for _, s := range c.base {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Scenario) int { return cmp.Compare(a.Slug, b.Slug) })
	return out
}

// Locales lists the overlay locales available for slug.
func (c *Catalog) Locales(slug string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var locales []string
	for key, s := range c.localized {
		if strings.HasPrefix(key, slug+".") {
			locales = append(locales, s.Locale)
		}
	}
	slices.Sort(locales)
	return locales
}
