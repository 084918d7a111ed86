package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tturner/smiteclick/internal/api"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/keys"
	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/orch"
	"github.com/tturner/smiteclick/internal/progress"
	"github.com/tturner/smiteclick/internal/settings"
)

type runFlags struct {
	start    bool
	duration time.Duration
	quiet    bool
	api      bool
	listen   string
	token    string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for hotkeys and click without the dashboard",
		Long: `Run smiteclick headless. The start and stop hotkeys from the settings
control clicking; a live counter is written to stderr.

With the API enabled (config api.enable, or --api) the local HTTP control
API is served as well. Press Ctrl+C to stop.`,
		Example: `  # Listen for F6/F7
  smiteclick run

  # Click for 30 seconds right away, then exit
  smiteclick run --start --duration 30s

  # Serve the HTTP API without a real input device
  smiteclick run --backend dry-run --api --listen 127.0.0.1:8765`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			e, err := loadEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()
			if cmd.Flags().Changed("api") {
				e.cfg.API.Enable = flags.api
			}
			if flags.listen != "" {
				e.cfg.API.Listen = flags.listen
			}
			if flags.token != "" {
				e.cfg.API.Token = flags.token
			}
			return runHeadless(cmd, e, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.start, "start", false, "Start clicking immediately")
	cmd.Flags().DurationVar(&flags.duration, "duration", 0, "Exit after this long (0 runs until interrupted)")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Do not draw the live counter")
	cmd.Flags().BoolVar(&flags.api, "api", false, "Serve the HTTP control API")
	cmd.Flags().StringVar(&flags.listen, "listen", "", "API listen address (overrides config)")
	cmd.Flags().StringVar(&flags.token, "token", "", "Bearer token required by the API")
	return cmd
}

func runHeadless(cmd *cobra.Command, e *env, flags *runFlags) error {
	svc, err := startServices(e)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if flags.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.duration)
		defer cancel()
	}

	counter := newSessionProgress(svc.settings, cmd.ErrOrStderr(), flags.quiet)
	svc.orch.OnUpdate(counter.handle)
	svc.watchConfig(ctx)

	apiErr := make(chan error, 1)
	if e.cfg.API.Enable {
		if e.log.GetLevel() < logging.LogLevelDebug {
			gin.SetMode(gin.ReleaseMode)
		}
		chanKeys, _ := svc.backend.Keys.(*hotkey.ChanSource)
		srv := api.NewServer(api.Deps{
			Control:  svc.orch,
			Settings: svc.settings,
			Store:    svc.store,
			Windows:  svc.backend.Windows,
			Keys:     chanKeys,
		}, e.cfg.API, e.log)
		go func() {
			apiErr <- srv.ListenAndServe(ctx)
		}()
		e.log.Info("HTTP API listening on %s", e.cfg.API.Listen)
	}

	snap := svc.settings.Snapshot()
	fmt.Fprintf(cmd.ErrOrStderr(), "smiteclick ready: %s to start, %s to stop (%s mode, %g cps)\n",
		keys.Display(snap.StartHotkey), keys.Display(snap.StopHotkey), snap.HotkeyMode, snap.CPS)
	if flags.start {
		svc.orch.Start()
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go func() {
		select {
		case err := <-apiErr:
			if err != nil {
				e.log.Error("api: %v", err)
				cancelRun()
			}
		case <-runCtx.Done():
		}
	}()

	return svc.run(runCtx)
}

// sessionProgress draws one progress.Counter per session from orchestrator
// updates. Updates arrive from several goroutines.
type sessionProgress struct {
	settings *settings.Store
	out      io.Writer
	quiet    bool

	mu      sync.Mutex
	id      string
	counter *progress.Counter
}

func newSessionProgress(set *settings.Store, out io.Writer, quiet bool) *sessionProgress {
	return &sessionProgress{settings: set, out: out, quiet: quiet}
}

func (p *sessionProgress) handle(u orch.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u.Result != nil {
		if p.counter != nil && p.id == u.SessionID {
			p.counter.Finish(u.Result.Count, string(u.Result.Reason))
		}
		p.counter = nil
		p.id = ""
		return
	}
	if u.Phase != orch.PhaseRunning {
		return
	}
	if p.counter == nil || p.id != u.SessionID {
		var limit int64
		if snap := p.settings.Snapshot(); snap.ClickLimitEnabled {
			limit = int64(snap.ClickLimitCount)
		}
		p.counter = progress.NewCounter(u.SessionID, limit)
		p.counter.SetOutput(p.out)
		if p.quiet {
			p.counter.Disable()
		}
		p.id = u.SessionID
	}
	p.counter.Set(u.Count)
}
