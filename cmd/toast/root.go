package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/billybjork/pixel-toaster/internal/batch"
	"github.com/billybjork/pixel-toaster/internal/config"
	"github.com/billybjork/pixel-toaster/internal/executor"
	"github.com/billybjork/pixel-toaster/internal/logging"
	"github.com/billybjork/pixel-toaster/internal/probe"
	"github.com/billybjork/pixel-toaster/internal/prompt"
	"github.com/billybjork/pixel-toaster/internal/provider"
	"github.com/billybjork/pixel-toaster/internal/recipes"
	"github.com/billybjork/pixel-toaster/internal/session"
	"github.com/billybjork/pixel-toaster/internal/setup"
	"github.com/billybjork/pixel-toaster/internal/synth"
	"github.com/billybjork/pixel-toaster/internal/ui"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

type options struct {
	DryRun   bool
	File     string
	Verbose  bool
	Yes      bool
	Setup    bool
	Backend  string
	Provider string
}

// run builds and executes the root command, translating the outcome
// into a process exit code.
func run(args []string) (int, error) {
	var opts options
	exitCode := exitOK

	root := &cobra.Command{
		Use:     "toast [request...]",
		Short:   "Turn plain English into working ffmpeg commands",
		Long:    "toast looks at the media files around you, asks a language model for the right ffmpeg invocation, runs it, and feeds any failure back for another try.",
		Version: version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runToast(cmd.Context(), opts, strings.Join(args, " "))
			exitCode = code
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.Flags()
	flags.BoolVar(&opts.DryRun, "dry-run", false, "show the generated command without executing it")
	flags.StringVar(&opts.File, "file", "", "use this input file instead of scanning the directory")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug output")
	flags.BoolVarP(&opts.Yes, "yes", "y", false, "run the generated command without asking")
	flags.BoolVar(&opts.Setup, "setup", false, "run the configuration wizard")
	flags.StringVar(&opts.Backend, "ui", "", "interactive backend: auto, bubbletea, huh, tview, or plain")
	flags.StringVar(&opts.Provider, "provider", "", "override the configured command generator")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root.SetArgs(args)
	root.SetContext(ctx)
	if err := root.Execute(); err != nil {
		if exitCode == exitOK {
			exitCode = exitFailure
		}
		return exitCode, err
	}
	return exitCode, nil
}

func runToast(ctx context.Context, opts options, query string) (int, error) {
	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		return exitFailure, err
	}
	if opts.Provider != "" {
		if err := cfg.Set("provider", opts.Provider); err != nil {
			return exitFailure, err
		}
	}

	logger, err := logging.New(cfg.Logging, opts.Verbose)
	if err != nil {
		return exitFailure, err
	}
	defer func() {
		_ = logger.Sync()
	}()

	firstRun := setup.Needed(cfg)
	if opts.Setup || firstRun {
		preselected := pickProvider(cfg, opts)
		if err := setup.Run(&cfg, preselected); err != nil {
			return exitFailure, err
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return exitFailure, err
		}
		logger.Info("configuration saved", zap.String("path", cfgPath))
		if opts.Setup && query == "" {
			return exitOK, nil
		}
	}
	if query == "" {
		return exitFailure, errors.New("tell me what to do, e.g. toast \"convert clip.mp4 to gif\"")
	}

	workDir, err := os.Getwd()
	if err != nil {
		return exitFailure, err
	}

	env, err := probe.Probe(ctx, probe.Options{
		Dir:          workDir,
		Prompt:       query,
		ExplicitFile: opts.File,
	})
	if err != nil {
		var missing *probe.ToolNotFoundError
		if errors.As(err, &missing) {
			fmt.Println(ui.RenderToolMissing())
			return exitFailure, nil
		}
		return exitFailure, err
	}
	logger.Debug("environment probed",
		zap.String("tool", env.ToolPath),
		zap.String("shell", env.Shell),
		zap.Int("files", len(env.Files)))

	if firstRun {
		applyWelcome(&cfg, cfgPath, env, logger)
	}

	adapter, err := provider.NewRegistry().ForConfig(cfg)
	if err != nil {
		return exitFailure, err
	}
	logger.Debug("provider selected", zap.String("provider", adapter.Name()))

	isBatch := batch.NewClassifier(cfg.Batch).Match(env)

	composer := prompt.NewComposer(cfg.Session)
	store, storePath, storeErr := recipes.Load()
	if storeErr != nil {
		logger.Warn("recipe store unavailable", zap.Error(storeErr))
	} else if entry, ok := store.Best(query, workDir); ok {
		logger.Debug("recipe hint found", zap.String("command", entry.Command))
		composer = composer.WithHint(entry.Command)
	}

	sess := session.New(session.Options{
		Env:      env,
		Composer: composer,
		Synth:    synth.New(adapter),
		Confirm:  confirmFunc(cfg, opts, isBatch, len(env.Files)),
		Logger:   logger,
		Ceiling:  cfg.Session.MaxAttempts,
		DryRun:   opts.DryRun,
		Batch:    isBatch,
	})

	state, err := sess.Run(ctx)

	if state == session.StateSucceeded && storeErr == nil {
		if last, ok := sess.LastAttempt(); ok {
			store.Record(query, last.Command, workDir)
			if err := recipes.Save(storePath, store); err != nil {
				logger.Warn("could not save recipe", zap.Error(err))
			}
		}
	}

	return report(sess, state, err)
}

// pickProvider offers the full-screen provider picker before the setup
// form. An unhandled or declined pick falls through to the form's own
// provider question.
func pickProvider(cfg config.Config, opts options) string {
	backend := cfg.UI.Backend
	if opts.Backend != "" {
		backend = opts.Backend
	}
	if !ui.IsInteractiveBackend(backend) {
		return ""
	}

	names := cfg.ProviderNames()
	providerOptions := make([]ui.ProviderOption, 0, len(names))
	for _, name := range names {
		pc := cfg.Providers[name]
		kind := pc.Type
		if kind == "" {
			kind = "openai"
		}
		providerOptions = append(providerOptions, ui.ProviderOption{
			Name:  name,
			Model: pc.Model,
			Kind:  kind,
		})
	}

	selected, handled, err := ui.SelectProvider(backend, cfg.Provider, providerOptions)
	if err != nil || !handled {
		return ""
	}
	return selected
}

// confirmFunc returns nil when nothing should be asked: dry runs never
// execute, and auto mode or --yes skips the gate.
func confirmFunc(cfg config.Config, opts options, isBatch bool, fileCount int) session.ConfirmFunc {
	if opts.DryRun || opts.Yes || cfg.Session.Mode == "auto" {
		return nil
	}

	backend := cfg.UI.Backend
	if opts.Backend != "" {
		backend = opts.Backend
	}

	note := ""
	if isBatch {
		note = fmt.Sprintf("batch request: this should loop over up to %d files", fileCount)
	}

	return func(command string) (bool, error) {
		if ui.IsInteractiveBackend(backend) {
			approved, handled, err := ui.ConfirmExecution(backend, command, note)
			if err == nil && handled {
				return approved, nil
			}
		}
		return ui.PlainConfirm(os.Stdin, os.Stdout, command, note)
	}
}

func report(sess *session.Session, state session.State, err error) (int, error) {
	switch state {
	case session.StateSucceeded:
		last, _ := sess.LastAttempt()
		fmt.Println(ui.RenderSuccess(last.Stdout))
		return exitOK, nil
	case session.StatePreviewed:
		last, _ := sess.LastAttempt()
		fmt.Println(ui.RenderPreview(last.Command))
		return exitOK, nil
	case session.StateExhausted:
		var exhausted *session.ExhaustedError
		if errors.As(err, &exhausted) {
			fmt.Println(ui.RenderExhausted(exhausted.Attempts))
		}
		return exitFailure, nil
	case session.StateAborted:
		if errors.Is(err, executor.ErrInterrupted) || errors.Is(err, context.Canceled) {
			fmt.Println("Interrupted.")
			return exitInterrupted, nil
		}
		fmt.Println("Cancelled.")
		return exitOK, nil
	default:
		return exitFailure, fmt.Errorf("session ended in unexpected state %s", state)
	}
}

// applyWelcome shows the one-time environment summary. Failures here
// are cosmetic and never block the actual request.
func applyWelcome(cfg *config.Config, cfgPath string, env probe.Context, logger *zap.Logger) {
	summary := strings.Join([]string{
		"- ffmpeg: " + env.ToolPath,
		"- version: " + env.ToolVersion,
		"- shell: " + env.Shell,
		fmt.Sprintf("- media files here: %d", len(env.Files)),
	}, "\n")

	currentModel := cfg.Providers[cfg.Provider].Model
	decision, handled, err := ui.Welcome(cfg.UI.Backend, summary, currentModel)
	if err != nil || !handled {
		return
	}

	changed := false
	if decision.SetModel && decision.Model != "" {
		pc := cfg.Providers[cfg.Provider]
		pc.Model = decision.Model
		cfg.Providers[cfg.Provider] = pc
		changed = true
	}
	if decision.AutoMode {
		cfg.Session.Mode = "auto"
		changed = true
	}
	if !changed {
		return
	}
	if err := config.Save(cfgPath, *cfg); err != nil {
		logger.Warn("could not save welcome choices", zap.Error(err))
	}
}
