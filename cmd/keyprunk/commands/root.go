package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyprunk/keyprunk/internal/config"
	"github.com/keyprunk/keyprunk/internal/keygen"
	"github.com/keyprunk/keyprunk/internal/match"
	"github.com/keyprunk/keyprunk/internal/printer"
	"github.com/keyprunk/keyprunk/internal/search"
	"github.com/keyprunk/keyprunk/internal/termio"
	"github.com/keyprunk/keyprunk/internal/termstatus"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	flagRegex      string
	flagStatus     string
	flagPassword   bool
	flagStopAfter  uint64
	flagWorkers    int
	flagOutput     string
	flagConfigFile string
	flagUIDName    string
	flagUIDComment string
	flagUIDEmail   string
)

// rootCmd is the whole CLI: keyprunk is a single-command tool.
var rootCmd = &cobra.Command{
	Use:   "keyprunk",
	Short: "keyprunk - vanity OpenPGP key generator",
	Long: `keyprunk brute-forces Ed25519 OpenPGP keys until the key fingerprint
matches a regular expression, then prints each match to stdout as an
ASCII-armored private key block.

The regex is matched against the hexadecimal representation of the
fingerprint: uppercase, without spaces or other separators. Patterns use
regexp2 syntax, which supports lookarounds and backreferences.`,
	SilenceUsage: true,
}

// Execute runs the CLI. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.RunE = runSearch
	rootCmd.Flags().StringVarP(&flagRegex, "regex", "r", "", "Regular expression tested against key fingerprints (required)")
	rootCmd.Flags().StringVar(&flagStatus, "status", string(config.StatusAuto), "Status display: auto, always or never")
	rootCmd.Flags().BoolVarP(&flagPassword, "password", "p", false, "Prompt for a passphrase and encrypt found keys with it")
	rootCmd.Flags().Uint64VarP(&flagStopAfter, "stop-after", "n", 0, "Stop after this many keys were found (0 = keep searching)")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Number of search workers (default: number of CPUs)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Append found keys to this file instead of stdout")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "", "Optional keyprunk.yml with defaults")
	rootCmd.Flags().StringVar(&flagUIDName, "uid-name", "", "Name for the user ID of generated keys")
	rootCmd.Flags().StringVar(&flagUIDComment, "uid-comment", "", "Comment for the user ID of generated keys")
	rootCmd.Flags().StringVar(&flagUIDEmail, "uid-email", "", "Email for the user ID of generated keys")
	rootCmd.MarkFlagRequired("regex")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	output, cleanup, err := openOutput()
	if err != nil {
		return err
	}
	defer cleanup()

	var status search.StatusView
	if cfg.StatusEnabled {
		printer.Info("Searching for fingerprints matching %s with %d workers. Press Ctrl+C to stop.\n",
			cfg.Pattern, cfg.Workers)
		status = termstatus.New(os.Stderr)
	}

	engine := search.New(search.Options{
		Provider:   keygen.NewGenerator(cfg.UserID),
		Matcher:    cfg.Pattern,
		Encoder:    keygen.NewEncoder(cfg.Pattern.String()),
		Output:     output,
		Status:     status,
		Workers:    cfg.Workers,
		StopAfter:  cfg.StopAfter,
		Passphrase: cfg.Passphrase,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return engine.Run(ctx)
}

// resolveConfig merges the optional defaults file with the explicit flags
// into the immutable run configuration. Flags always win.
func resolveConfig() (*config.Config, error) {
	var file config.FileConfig
	if flagConfigFile != "" {
		loaded, err := config.LoadFile(flagConfigFile)
		if err != nil {
			return nil, err
		}
		file = *loaded
	}

	pattern, err := match.Compile(flagRegex, file.ResolveMatchTimeout())
	if err != nil {
		return nil, printer.Error(
			fmt.Sprintf("invalid regex: %v", err),
			"The pattern is matched with regexp2 syntax against the uppercase hex fingerprint.",
			[]string{"Quote the pattern to protect it from the shell", "Test the expression against a literal like 'ABCDEF0123456789ABCDEF0123456789ABCDEF01'"},
		)
	}

	statusValue := flagStatus
	if !rootCmd.Flags().Changed("status") && file.Status != "" {
		statusValue = file.Status
	}
	statusMode, err := config.ParseStatusMode(statusValue)
	if err != nil {
		return nil, err
	}

	workers := flagWorkers
	if workers == 0 {
		workers = file.Workers
	}
	if workers == 0 {
		workers = config.DefaultWorkers()
	}

	uid := keygen.UserID{Name: flagUIDName, Comment: flagUIDComment, Email: flagUIDEmail}
	if uid == (keygen.UserID{}) && file.UserID != nil {
		uid = keygen.UserID{Name: file.UserID.Name, Comment: file.UserID.Comment, Email: file.UserID.Email}
	}

	var passphrase []byte
	if flagPassword {
		passphrase, err = termio.PromptPassphrase()
		if err != nil {
			return nil, err
		}
		if passphrase == nil {
			printer.Warning("empty passphrase, found keys will be written unencrypted\n")
		}
	}

	cfg := &config.Config{
		Pattern:       pattern,
		StatusEnabled: statusMode.Enabled(termio.IsTerminal(os.Stderr), termio.IsTerminal(os.Stdout)),
		StopAfter:     flagStopAfter,
		Passphrase:    passphrase,
		Workers:       workers,
		UserID:        uid,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openOutput returns the artifact sink: stdout, or the --output file opened
// append-only so earlier finds survive repeated runs.
func openOutput() (io.Writer, func(), error) {
	if flagOutput == "" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.OpenFile(flagOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
