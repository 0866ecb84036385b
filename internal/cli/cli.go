package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/edgeprint/pkg/buildinfo"
	"github.com/matzehuels/edgeprint/pkg/cache"
	"github.com/matzehuels/edgeprint/pkg/config"
	"github.com/matzehuels/edgeprint/pkg/errors"
	"github.com/matzehuels/edgeprint/pkg/mockup"
	"github.com/matzehuels/edgeprint/pkg/pipeline"
	"github.com/matzehuels/edgeprint/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "edgeprint"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out        io.Writer
	verbose    bool
	configPath string
	config     *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), out: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Edgeprint prints designs onto the page edges of a book",
		Long:         `Edgeprint turns an edge design into per-leaf slices, composites them onto the pages of a print-ready PDF, and renders 3D mockups of the result.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/edgeprint/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.templateCommand())
	root.AddCommand(c.sliceCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.processCommand())
	root.AddCommand(c.splitCommand())
	root.AddCommand(c.compositeCommand())
	root.AddCommand(c.mergeCommand())
	root.AddCommand(c.mockupCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the configuration once per invocation.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.config = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from the configuration.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	cc := cfg.Cache
	if noCache {
		cc.Backend = config.CacheNone
	}
	ch, err := newCache(ctx, cc, c.Logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	runner := pipeline.NewRunner(store, ch, c.Logger)
	runner.Options = pipeline.Options{
		ChunkSize:      cfg.Processing.ChunkSize,
		TimeBudget:     cfg.Processing.TimeBudget.Duration,
		PixelsPerPoint: cfg.Processing.PixelsPerPoint,
		Parallel:       cfg.Processing.ParallelDownloads,
		Retry:          cfg.Retry.Policy(),
		PaperColor:     cfg.Mockup.Paper(),
		CacheTTL:       cfg.Cache.TTL.Duration,
	}
	if cfg.Cache.KeyPrefix != "" {
		runner.Keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.KeyPrefix)
	}
	runner.Templates = &mockup.TemplateSource{
		Path:    cfg.Mockup.Template,
		BaseURL: cfg.Mockup.AssetBaseURL,
		Policy:  cfg.Retry.Policy(),
		Logger:  c.Logger,
	}
	return runner, nil
}

func newStore(ctx context.Context, sc config.Storage) (storage.Store, error) {
	switch sc.Backend {
	case config.StorageMongo:
		return storage.NewMongoStore(ctx, storage.MongoOptions{
			URI:      sc.MongoURI,
			Database: sc.MongoDatabase,
			Bucket:   sc.MongoBucket,
		})
	default:
		return storage.NewFileStore(sc.Dir)
	}
}

// newCache opens the configured cache. An unusable file cache directory
// degrades to no caching.
func newCache(ctx context.Context, cc config.Cache, logger *log.Logger) (cache.Cache, error) {
	switch cc.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cc.RedisURL())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to redis at %s", cc.RedisAddr)
		}
		return rc, nil
	default:
		if cc.Dir == "" {
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(cc.Dir)
		if err != nil {
			logger.Warn("cache disabled", "dir", cc.Dir, "error", err)
			return cache.NewNullCache(), nil
		}
		return fc, nil
	}
}

// =============================================================================
// Input Helpers
// =============================================================================

// readSource returns the bytes of an edge or cover source: hex colours are
// passed through, anything else is read as a file.
func readSource(s string) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(s), "#") {
		return []byte(strings.TrimSpace(s)), nil
	}
	data, err := os.ReadFile(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", s)
	}
	return data, nil
}

// readDocument reads a PDF from path, or stdin when path is "-".
func readDocument(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "read %s", path)
	}
	return data, nil
}

// writeOutput writes data to path, or stdout when path is "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
