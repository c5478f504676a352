// Command translator is the terminal client for the PDF translation service.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/config"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/jobs"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/session"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		logger:     logger,
		in:         os.Stdin,
		out:        os.Stdout,
		loadConfig: config.Load,
	}
	if err := newRootCommand(a).ExecuteContext(ctx); err != nil {
		fatal(logger, "command failed", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}

type app struct {
	logger     *slog.Logger
	in         io.Reader
	out        io.Writer
	loadConfig func() (config.Config, error)
	verbose    bool
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "translator",
		Short:         "Upload PDFs for translation and track translation jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				a.logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug, TimeFormat: time.Kitchen}))
				slog.SetDefault(a.logger)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.SetIn(a.in)
	root.SetOut(a.out)

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newLanguagesCommand(a),
		newSubmitCommand(a),
		newInspectCommand(a),
		newJobsCommand(a),
		newWatchCommand(a),
		newDownloadCommand(a),
		newEventsCommand(a),
	)
	return root
}

// openSession builds a session from configuration. Closing the session
// also closes the bus connection.
func (a *app) openSession(opener jobs.Opener) (*session.Session, config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	tokens, cognito, err := session.TokenProvider(cfg, a.logger)
	if err != nil {
		return nil, cfg, err
	}
	pub, err := session.ConnectBus(cfg, a.logger)
	if err != nil {
		return nil, cfg, err
	}
	deps := session.Deps{
		Tokens:    tokens,
		Opener:    opener,
		Publisher: pub,
		Logger:    a.logger,
	}
	if cognito != nil {
		deps.SignOuter = cognito
	}
	sess, err := session.New(cfg, deps)
	if err != nil {
		if c, ok := pub.(interface{ Close() }); ok {
			c.Close()
		}
		return nil, cfg, err
	}
	return sess, cfg, nil
}
