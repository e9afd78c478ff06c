package cli

import (
	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/branding"
	"github.com/claudekit-labs/claudekit/internal/config"
	"github.com/claudekit-labs/claudekit/internal/logging"
	"github.com/claudekit-labs/claudekit/internal/registry"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	sourceFlag  string
	verboseFlag bool
	refreshFlag bool
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers Claude Code commands, hooks, and agents in a source tree,
resolves their dependencies, and installs them into ~/.claude, a project's
.claude directory, or a custom path. Every installation runs as a transaction
that is rolled back if any step fails.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sourceFlag, "source", "", "Component source directory (overrides the source config key)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&refreshFlag, "refresh", false, "Rescan the source directory instead of using the cache")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// session is the per-invocation pipeline state shared by commands.
type session struct {
	cfg        config.Defaults
	logger     *log.Logger
	discoverer *registry.Discoverer
	source     string
}

// newSession resolves config, logging, and the component source for cmd.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg := config.Current()
	logger := logging.New(cmd.ErrOrStderr(), branding.CLIName(), verboseFlag || cfg.Verbose)

	source, err := resolveSource(sourceFlag, cfg.Source)
	if err != nil {
		return nil, err
	}
	cache := registry.NewCache(cfg.CacheTTL)
	logger.Debug("using component source", "path", source, "cache_ttl", cache.TTL())

	return &session{
		cfg:        cfg,
		logger:     logger,
		discoverer: registry.NewDiscoverer(cache, logger),
		source:     source,
	}, nil
}

// discover scans the session source with opts.
func (s *session) discover(cmd *cobra.Command, opts registry.DiscoverOptions) (*registry.Registry, error) {
	opts.ForceRefresh = opts.ForceRefresh || refreshFlag
	return s.discoverer.Discover(cmd.Context(), s.source, opts)
}
