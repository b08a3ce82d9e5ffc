package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/glabrego/sitebag-cli/internal/app"
	"github.com/glabrego/sitebag-cli/internal/config"
	"github.com/glabrego/sitebag-cli/internal/dispatch"
	"github.com/glabrego/sitebag-cli/internal/feed"
	"github.com/glabrego/sitebag-cli/internal/job"
	"github.com/glabrego/sitebag-cli/internal/logging"
	"github.com/glabrego/sitebag-cli/internal/sitebag"
	"github.com/glabrego/sitebag-cli/internal/storage"
	"github.com/glabrego/sitebag-cli/internal/tui"
)

const initTimeout = 15 * time.Second

// env is the wiring shared by every command, built once flags are parsed.
type env struct {
	cfg        config.Config
	logger     *log.Logger
	closeLog   func() error
	client     *sitebag.Client
	repo       *storage.Repository
	service    *app.Service
	dispatcher *dispatch.Dispatcher
	forget     func()
}

func main() {
	var e env
	err := rootCmd(&e).Execute()
	if cerr := e.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", sitebag.UserMessage(err))
		os.Exit(1)
	}
}

// rootCmd wires e in PersistentPreRunE; the caller closes it after Execute.
func rootCmd(e *env) *cobra.Command {
	var cfgFile string
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:           "sitebag",
		Short:         "Terminal client for a sitebag read-it-later server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsEnv(cmd) {
				return nil
			}
			return e.open(cmd, v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), e)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.sitebag/config.yaml)")
	flags.String("server", "", "sitebag server URL")
	flags.String("user", "", "account name")
	flags.String("password", "", "account password")
	flags.String("db", "", "local cache database path")
	flags.String("log-file", "", "log file (default stderr, discarded in the TUI)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Duration("timeout", 0, "HTTP request timeout")
	flags.Float64("rps", 0, "max requests per second (0 = unlimited)")
	bindFlags(v, cmd, map[string]string{
		config.KeyServerURL:         "server",
		config.KeyUsername:          "user",
		config.KeyPassword:          "password",
		config.KeyDBPath:            "db",
		config.KeyLogPath:           "log-file",
		config.KeyLogLevel:          "log-level",
		config.KeyTimeout:           "timeout",
		config.KeyRequestsPerSecond: "rps",
	})

	cmd.AddCommand(listCmd(e))
	cmd.AddCommand(showCmd(e))
	cmd.AddCommand(addCmd(e))
	cmd.AddCommand(tagCmd(e))
	cmd.AddCommand(tagsCmd(e))
	cmd.AddCommand(archiveCmd(e))
	cmd.AddCommand(favourCmd(e, true))
	cmd.AddCommand(favourCmd(e, false))
	cmd.AddCommand(deleteCmd(e))
	cmd.AddCommand(reextractCmd(e))
	cmd.AddCommand(accountCmd(e))
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		// Lookup never returns nil here; the flags are defined above.
		_ = v.BindPFlag(key, cmd.PersistentFlags().Lookup(name))
	}
}

// needsEnv is false for cobra's own help and completion commands, which must
// work without a valid config.
func needsEnv(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func (e *env) open(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.LogPath == "" && cmd == cmd.Root() {
		logger = logging.Discard()
	}

	client := sitebag.NewClient(cfg.ServerURL, cfg.Username, cfg.Password,
		&http.Client{Timeout: cfg.Timeout},
		sitebag.WithRateLimit(cfg.RequestsPerSecond),
		sitebag.WithLogger(logger),
	)

	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		_ = closeLog()
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), initTimeout)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		_ = repo.Close()
		_ = closeLog()
		return fmt.Errorf("storage schema: %w (check %s is writable)", err, cfg.DBPath)
	}

	service := app.NewService(client, repo, logger)
	dispatcher := dispatch.New(client, dispatch.WithLogger(logger))
	forget := dispatcher.Subscribe(func(ev dispatch.Event) {
		if ev.Action == dispatch.ActionDelete {
			service.Forget(context.Background(), ev.EntryID)
		}
	})

	*e = env{
		cfg:        cfg,
		logger:     logger,
		closeLog:   closeLog,
		client:     client,
		repo:       repo,
		service:    service,
		dispatcher: dispatcher,
		forget:     forget,
	}
	logger.Debug("ready", "server", cfg.ServerURL, "db", cfg.DBPath, "command", cmd.Name())
	return nil
}

func (e *env) close() error {
	if e.forget != nil {
		e.forget()
	}
	var firstErr error
	if e.repo != nil {
		firstErr = e.repo.Close()
	}
	if e.closeLog != nil {
		if err := e.closeLog(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func runTUI(ctx context.Context, e *env) error {
	criteria := e.service.LastCriteria(ctx)
	model := tui.NewModel(tui.Deps{
		Service:    e.service,
		Loader:     feed.NewLoader(e.service, feed.WithLogger(e.logger)),
		Dispatcher: e.dispatcher,
		Poller:     job.NewPoller(e.client, job.WithLogger(e.logger)),
		TagClient:  e.client,
		Logger:     e.logger,
	}, criteria)

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if m, ok := final.(tui.Model); ok {
		m.Close()
	} else {
		model.Close()
	}
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
