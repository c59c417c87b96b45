// Package cli builds the cobra commands of the Bid Manager tools.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"google.golang.org/api/option"

	"github.com/j-veylop/bidmanager-cli/internal/auth"
	"github.com/j-veylop/bidmanager-cli/internal/config"
	"github.com/j-veylop/bidmanager-cli/internal/db"
	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/logger"
	"github.com/j-veylop/bidmanager-cli/internal/models"
	"github.com/j-veylop/bidmanager-cli/internal/notify"
	"github.com/j-veylop/bidmanager-cli/internal/report"
	"github.com/j-veylop/bidmanager-cli/internal/ui/prompt"
	"github.com/j-veylop/bidmanager-cli/internal/version"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitInvalidArg = 2
)

const defaultTerminalWidth = 80

// History is the activity ledger as seen by the commands.
type History interface {
	report.Recorder
	RecentActivity(ctx context.Context, limit int, queryID int64) ([]models.Activity, error)
	Close() error
}

// Session holds the remote clients of one invocation.
type Session struct {
	Service dbm.Service
	Opener  report.Opener
	close   func() error
}

// NewSession bundles a service and report opener. closeFn may be nil.
func NewSession(svc dbm.Service, opener report.Opener, closeFn func() error) *Session {
	return &Session{Service: svc, Opener: opener, close: closeFn}
}

// Close releases the session clients.
func (s *Session) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// Runtime carries the process environment the commands depend on.
type Runtime struct {
	Stdin         io.Reader
	Stdout        io.Writer
	Stderr        io.Writer
	LoadConfig    func() *config.Config
	Connect       func(ctx context.Context, cfg *config.Config, creds config.Credentials) (*Session, error)
	OpenHistory   func(path string) (History, error)
	IsTerminal    func() bool
	TerminalWidth func() int
	AskQueryID    func() (int64, error)
	Sleep         func(ctx context.Context, d time.Duration) error
	Notifier      report.Notifier
}

// DefaultRuntime wires the real terminal, network and storage.
func DefaultRuntime() *Runtime {
	return &Runtime{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		LoadConfig:  config.Load,
		Connect:     connect,
		OpenHistory: func(path string) (History, error) { return db.New(path) },
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
		TerminalWidth: func() int {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil || w <= 0 {
				return defaultTerminalWidth
			}
			return w
		},
		AskQueryID: func() (int64, error) { return prompt.AskQueryID(os.Stdin, os.Stdout) },
		Sleep:      report.SleepContext,
		Notifier:   notify.NewDesktop(),
	}
}

// connect authorizes API calls with the refresh token and opens reports over
// plain HTTP or, for gs:// locations, through Cloud Storage.
func connect(ctx context.Context, cfg *config.Config, creds config.Credentials) (*Session, error) {
	base := &http.Client{Timeout: cfg.HTTPTimeout}
	ts, err := auth.TokenSource(ctx, base, creds)
	if err != nil {
		return nil, err
	}

	api := dbm.NewClient(auth.NewHTTPClient(ctx, base, ts), cfg.APIBaseURL)
	gcs := report.NewGCSOpener(option.WithTokenSource(ts))
	return NewSession(api, report.NewSchemeOpener(&http.Client{}, gcs), gcs.Close), nil
}

// Execute runs cmd with a signal-aware context and maps the error to an
// exit code.
func Execute(cmd *cobra.Command, rt *Runtime) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(rt.Stderr, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, dbm.ErrInvalidArgument):
		return ExitInvalidArg
	default:
		return ExitFailure
	}
}

// commonFlags are shared by every command.
type commonFlags struct {
	clientID     string
	clientSecret string
	credentials  string
	logLevel     string
	noHistory    bool
}

func (f *commonFlags) overrides() config.Overrides {
	return config.Overrides{
		ClientID:        f.clientID,
		ClientSecret:    f.clientSecret,
		CredentialsPath: f.credentials,
	}
}

// newRootCommand creates a command with the shared flags, error handling and
// flag name normalization.
func newRootCommand(rt *Runtime, use, short string, common *commonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Version:       version.Info(),
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := common.logLevel
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			logger.Configure(rt.Stderr, level)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetIn(rt.Stdin)
	cmd.SetOut(rt.Stdout)
	cmd.SetErr(rt.Stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", dbm.ErrInvalidArgument, err)
	})
	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	pf := cmd.PersistentFlags()
	pf.StringVar(&common.clientID, "client-id", "", "OAuth client ID (overrides DBM_CLIENT_ID and the credentials file)")
	pf.StringVar(&common.clientSecret, "client-secret", "", "OAuth client secret (overrides DBM_CLIENT_SECRET and the credentials file)")
	pf.StringVar(&common.credentials, "credentials", "", "Credentials YAML with client_id, client_secret and refresh_token (default DBM_CREDENTIALS_PATH or ~/dbm_sample.yaml)")
	pf.StringVar(&common.logLevel, "log-level", "", "Log level: debug, info, warn, error (default LOG_LEVEL or info)")
	pf.BoolVar(&common.noHistory, "no-history", false, "Do not record this run in the local activity ledger")

	return cmd
}

// normalizeFlagName accepts the underscore spellings of flag names.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return dbm.InvalidArgument("unexpected arguments: %s", strings.Join(args, " "))
	}
	return nil
}

// env is what a command needs once credentials are resolved.
type env struct {
	cfg     *config.Config
	session *Session
	history History
}

// recorder returns the ledger, or nil when history is disabled.
func (e *env) recorder() report.Recorder {
	if e.history == nil {
		return nil
	}
	return e.history
}

func (e *env) Close() {
	if err := e.session.Close(); err != nil {
		logger.Warn("failed to close session", "error", err)
	}
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			logger.Warn("failed to close history", "error", err)
		}
	}
}

// open loads configuration, resolves credentials, connects and opens the
// ledger. A ledger that cannot be opened is skipped with a warning.
func (rt *Runtime) open(ctx context.Context, common *commonFlags) (*env, error) {
	cfg := rt.LoadConfig()
	if common.logLevel == "" {
		logger.Configure(rt.Stderr, cfg.LogLevel)
	}

	creds, err := cfg.ResolveCredentials(common.overrides())
	if err != nil {
		return nil, err
	}

	session, err := rt.Connect(ctx, cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	e := &env{cfg: cfg, session: session}
	if !common.noHistory {
		e.history = rt.openHistory(cfg.HistoryPath)
	}
	return e, nil
}

func (rt *Runtime) openHistory(path string) History {
	if rt.OpenHistory == nil || path == "" {
		return nil
	}
	h, err := rt.OpenHistory(path)
	if err != nil {
		logger.Warn("activity ledger unavailable", "path", path, "error", err)
		return nil
	}
	return h
}

func (rt *Runtime) terminal() bool {
	return rt.IsTerminal != nil && rt.IsTerminal()
}

func (rt *Runtime) width() int {
	if rt.TerminalWidth == nil {
		return defaultTerminalWidth
	}
	return rt.TerminalWidth()
}
