package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/alamicos/scoreboard/internal/client"
	"github.com/alamicos/scoreboard/internal/scoreboard"
)

type Config struct {
	server  string
	dataDir string
	timeout time.Duration
	verbose bool

	// Set by commands.
	fs afero.Fs
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid --server %q: want http(s)://host[:port]", c.server)
	}
	if c.timeout <= 0 {
		return errors.New("--timeout must be positive")
	}
	return nil
}

func (c *Config) logger(w io.Writer) *slog.Logger {
	if !c.verbose {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (c *Config) syncer(w io.Writer) (*client.Client, *client.Syncer) {
	cl := client.New(c.server)
	return cl, client.NewSyncer(cl, client.NewFileStore(c.fs, c.dataDir), c.logger(w))
}

// board resolves slug against the server's boards, falling back to the
// built-in ones when the server cannot be reached.
func (c *Config) board(ctx context.Context, cl *client.Client, slug string) (scoreboard.Board, error) {
	boards, _, err := cl.Boards(ctx)
	if err != nil {
		boards = scoreboard.DefaultBoards()
	}
	for _, b := range boards {
		if b.Slug == strings.ToLower(slug) {
			return b, nil
		}
	}
	return scoreboard.Board{}, fmt.Errorf("unknown game %q", slug)
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".scoreboard"
	}
	return filepath.Join(dir, "alamicos-scoreboard")
}

// bindFlags lets SCOREBOARD_<FLAG> fill any flag not set on the command line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SCOREBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "scoreboard",
		Short:         "Read and submit party game leaderboards and survey votes.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindFlags(v, cmd.Flags())
			if cfg.fs == nil {
				cfg.fs = afero.NewOsFs()
			}
			return cfg.validate()
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	pfs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "scoreboard server URL (env: SCOREBOARD_SERVER)")
	pfs.StringVar(&cfg.dataDir, "data-dir", defaultDataDir(), "directory for local boards and queued attempts (env: SCOREBOARD_DATA_DIR)")
	pfs.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "time limit for each command (env: SCOREBOARD_TIMEOUT)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log sync decisions to stderr (env: SCOREBOARD_VERBOSE)")

	cmd.AddCommand(
		newBoardsCmd(cfg),
		newShowCmd(cfg),
		newSubmitCmd(cfg),
		newFlushCmd(cfg),
		newVoteCmd(cfg),
		newTallyCmd(cfg),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("scoreboard v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func withTimeout(cmd *cobra.Command, cfg *Config) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, cfg.timeout)
}
