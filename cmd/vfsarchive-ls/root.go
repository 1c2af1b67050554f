package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vfsarchive/internal/vfsarchive"
)

var version = "dev"

var (
	verbose bool
	debug   bool
)

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vfsarchive-ls",
		Version: version,
		Short:   "Navigate zip archives, including nested archives, as a virtual filesystem",
		Long: `vfsarchive-ls mounts a zip archive and walks it like a filesystem, without
extracting it to disk unless VFSARCHIVE_FORCE_COPY is set: nested archives (a .jar inside a .war, a .zip
inside that .jar) are recursively mounted on demand the first time a path
reaches into them.

Commands:
  ls    List the children of a path inside a mounted archive
  cat   Stream the content of a file inside a (possibly nested) archive
  stat  Print size, modification time, and leaf/directory status for a path

Examples:
  vfsarchive-ls ls app.war
  vfsarchive-ls ls app.war WEB-INF/lib
  vfsarchive-ls cat app.war/WEB-INF/lib/util.jar/com/example/Util.class
  vfsarchive-ls stat app.war/WEB-INF/lib/util.jar`,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := vfsarchive.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := vfsarchive.SweepProcessTempDir(cfg.TempDir); err != nil {
				return fmt.Errorf("sweep temp dir: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Accepted for compatibility; does not change logging (use --debug for debug level)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level")

	return cmd
}

func newEngine() (*vfsarchive.Engine, error) {
	cfg, err := vfsarchive.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := vfsarchive.NewLogger(vfsarchive.LoggerOptions{Verbose: verbose, Debug: debug})
	metrics := vfsarchive.NewMetrics(nil)

	engine, err := vfsarchive.NewEngine(cfg, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}
	return engine, nil
}
