package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/bus"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/jobs"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/pdfinfo"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/session"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/internal/upload"
	"github.com/hammadahmadbhatti/AWS-Based-Server-PDF-translation-application/pkg/schema"
)

var errNoUserPool = errors.New("sign-in needs USER_POOL_ID and USER_POOL_CLIENT_ID")

func newLoginCommand(a *app) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the user pool and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.CognitoEnabled() {
				return errNoUserPool
			}
			_, cognito, err := session.TokenProvider(cfg, a.logger)
			if err != nil {
				return err
			}
			if cognito == nil {
				return fmt.Errorf("TRANSLATOR_TOKEN is set; unset it to sign in")
			}

			r := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				if username, err = prompt(cmd, r, "Username: "); err != nil {
					return err
				}
			}
			password, err := prompt(cmd, r, "Password: ")
			if err != nil {
				return err
			}
			if err := cognito.SignIn(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "user name or email")
	return cmd
}

func prompt(cmd *cobra.Command, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" && err != nil {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return line, nil
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.CognitoEnabled() {
				return errNoUserPool
			}
			_, cognito, err := session.TokenProvider(cfg, a.logger)
			if err != nil {
				return err
			}
			if cognito == nil {
				return fmt.Errorf("TRANSLATOR_TOKEN is set; there is no stored session to forget")
			}
			if err := cognito.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newLanguagesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderLanguages(cmd.OutOrStdout(), schema.Languages(), schema.DefaultTargetLanguage)
		},
	}
}

func newSubmitCommand(a *app) *cobra.Command {
	var (
		lang string
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "submit <file.pdf>",
		Short: "Upload a PDF for translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := upload.FileFromPath(args[0])
			if err != nil {
				return err
			}
			sess, cfg, err := a.openSession(nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Uploads.SetTargetLanguage(lang); err != nil {
				return err
			}
			if err := sess.Uploads.Select(file); err != nil {
				return err
			}
			if _, err := sess.Uploads.Submit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.Uploads.State().Success)

			if !wait {
				return nil
			}
			if err := sleepCtx(cmd.Context(), cfg.RefreshDelay); err != nil {
				return nil
			}
			if err := sess.Registry.Refresh(cmd.Context()); err != nil {
				return err
			}
			return renderJobs(cmd.OutOrStdout(), sess.Registry.Views())
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", schema.DefaultTargetLanguage, "target language code")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "show the job list once the new job is visible")
	return cmd
}

func newInspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Show local PDF metadata before submitting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := upload.FileFromPath(args[0])
			if err != nil {
				return err
			}
			info, err := pdfinfo.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderPDFInfo(cmd.OutOrStdout(), file, info)
		},
	}
}

func newJobsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List translation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := a.openSession(nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Registry.Refresh(cmd.Context()); err != nil {
				return err
			}
			return renderJobs(cmd.OutOrStdout(), sess.Registry.Views())
		},
	}
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the job list and print it whenever it is refreshed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cfg, err := a.openSession(nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Start(cmd.Context()); err != nil {
				return err
			}
			return watchJobs(cmd.Context(), cmd.OutOrStdout(), sess.Registry, cfg.PollInterval/2)
		},
	}
}

func newDownloadCommand(a *app) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "download <jobId>",
		Short: "Open the translated document of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opener jobs.Opener = jobs.BrowserOpener{}
			if printOnly {
				opener = jobs.WriterOpener{W: cmd.OutOrStdout()}
			}
			sess, _, err := a.openSession(opener)
			if err != nil {
				return err
			}
			defer sess.Close()

			_, err = sess.Registry.Download(cmd.Context(), args[0])
			return err
		},
	}
	cmd.Flags().BoolVarP(&printOnly, "print", "p", false, "print the link instead of opening a browser")
	return cmd
}

func newEventsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow upload and job status events on NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.NATSURL == "" {
				return errors.New("NATS_URL is not set")
			}
			nc, err := bus.Connect(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connect to NATS: %w", err)
			}
			defer nc.Close()

			out := cmd.OutOrStdout()
			sub, err := nc.SubscribeJSON(cfg.EventSubject+".>", func(ctx context.Context, subject string, data []byte) {
				fmt.Fprintf(out, "%s %s\n", subject, data)
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			defer sub.Unsubscribe()

			a.logger.Info("following events", "subject", cfg.EventSubject+".>")
			<-cmd.Context().Done()
			return nil
		},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// watchJobs prints the job table each time the registry completes a
// refresh, until ctx ends. Failed refreshes are logged by the registry.
func watchJobs(ctx context.Context, w io.Writer, r *jobs.Registry, every time.Duration) error {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var shown time.Time
	for {
		if at, _ := r.LastRefresh(); !at.Equal(shown) {
			shown = at
			fmt.Fprintf(w, "\n%s\n", at.Local().Format(time.TimeOnly))
			if err := renderJobs(w, r.Views()); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
