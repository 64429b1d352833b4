package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
)

// SearchDirs are the conventional install locations checked for converter
// binaries, in order, when no override is configured.
var SearchDirs = []string{"/usr/bin", "/usr/local/bin"}

// DefaultMaxConcurrent bounds simultaneous converter subprocesses.
const DefaultMaxConcurrent = 4

// Converters runs external converter binaries. At most MaxConcurrent run at
// once, and a binary that keeps failing is skipped until its circuit
// breaker resets.
type Converters struct {
	overrides map[string]string
	dirs      []string
	sem       *semaphore.Weighted

	mu       sync.Mutex
	breakers map[string]*serrors.CircuitBreaker
	located  map[string]string

	logger *slog.Logger
}

// ConvertersConfig configures Converters.
type ConvertersConfig struct {
	// Binaries maps a binary name ("catdoc") to a full path.
	Binaries map[string]string
	// MaxConcurrent bounds simultaneous subprocesses (default 4).
	MaxConcurrent int
	// SearchDirs replaces the default install locations.
	SearchDirs []string
	Logger     *slog.Logger
}

// NewConverters creates a converter runner.
func NewConverters(cfg ConvertersConfig) *Converters {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.SearchDirs == nil {
		cfg.SearchDirs = SearchDirs
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	overrides := make(map[string]string, len(cfg.Binaries))
	for name, path := range cfg.Binaries {
		if path != "" {
			overrides[name] = path
		}
	}
	return &Converters{
		overrides: overrides,
		dirs:      cfg.SearchDirs,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		breakers:  make(map[string]*serrors.CircuitBreaker),
		located:   make(map[string]string),
		logger:    cfg.Logger,
	}
}

// Locate finds a binary: configured override first, then each search
// directory. The result is remembered.
func (c *Converters) Locate(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path, ok := c.located[name]; ok {
		return path, path != ""
	}

	path := ""
	if p, ok := c.overrides[name]; ok {
		if isExecutable(p) {
			path = p
		}
	} else {
		for _, dir := range c.dirs {
			if p := filepath.Join(dir, name); isExecutable(p) {
				path = p
				break
			}
		}
	}
	c.located[name] = path
	if path == "" {
		c.logger.Debug("converter_not_found", slog.String("binary", name))
	}
	return path, path != ""
}

// LookPath finds a binary on PATH, honouring an override.
func (c *Converters) LookPath(name string) (string, bool) {
	if p, ok := c.overrides[name]; ok {
		return p, isExecutable(p)
	}
	p, err := exec.LookPath(name)
	return p, err == nil
}

// Run executes binary with args and returns its stdout.
func (c *Converters) Run(ctx context.Context, binary string, args ...string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)

	var out string
	err := c.breaker(binary).Execute(func() error {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, binary, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%s: %w: %s", filepath.Base(binary), err, bytes.TrimSpace(stderr.Bytes()))
		}
		out = stdout.String()
		return nil
	})
	return out, err
}

func (c *Converters) breaker(binary string) *serrors.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[binary]
	if !ok {
		cb = serrors.NewCircuitBreaker(filepath.Base(binary))
		c.breakers[binary] = cb
	}
	return cb
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}
