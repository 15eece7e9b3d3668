// File: cmd/run.go
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/multisteam/internal/browser"
	"github.com/xkilldash9x/multisteam/internal/creds"
	"github.com/xkilldash9x/multisteam/internal/observability"
	"github.com/xkilldash9x/multisteam/internal/popup"
	"github.com/xkilldash9x/multisteam/internal/registry"
	"github.com/xkilldash9x/multisteam/internal/shell"
	"github.com/xkilldash9x/multisteam/internal/store"
)

const shutdownTimeout = 15 * time.Second

// runShell wires every component together and runs the interactive shell
// until the console exits or a signal arrives.
func runShell(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	log := observability.GetLogger()
	defer observability.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	st := store.Open(cfg.StatePath(), log)
	doc := st.Load()
	state := &doc

	loop := shell.NewLoop()
	router := popup.NewRouter(log)

	// Engine callbacks fire on protocol goroutines; every one hops onto the
	// loop before reaching the shell. sh is bound below, before any session
	// can exist, so the closures never observe it nil.
	var sh *shell.Shell
	events := browser.Events{
		OnURLChanged: func(name, url string) {
			loop.Post(func() { sh.OnURLChanged(name, url) })
		},
		OnLoadFinished: func(name string) {
			loop.Post(func() { sh.OnLoadFinished(name) })
		},
		OnConsoleMessage: func(name, text string) {
			loop.Post(func() { sh.OnConsoleMessage(name, text) })
		},
		OnCrashed: func(name string) {
			loop.Post(func() { sh.OnCrashed(name) })
		},
		OnPopupOpened: func(name, id string, p *browser.Popup) {
			loop.Post(func() { sh.OnPopupOpened(name, id, p) })
		},
		OnPopupClosed: func(id string) {
			loop.Post(func() { sh.OnPopupClosed(id) })
		},
		OnDownloadStatus: func(name, status string) {
			loop.Post(func() { sh.OnDownloadStatus(name, status) })
		},
		OnEngineGone: func(name string) {
			loop.Post(func() { sh.OnEngineGone(name) })
		},
	}

	launcher := browser.NewLauncher(log, cfg, events)
	reg := registry.New(log, cfg.ProfilesDir(),
		func(ctx context.Context, name, dir string) (registry.Session, error) {
			return launcher.Launch(ctx, name, dir)
		},
		router.CloseAll)

	console := shell.NewConsole(log, loop, os.Stdin, os.Stdout)
	sh = shell.New(runCtx, log, cfg, loop, reg, router, st, state,
		console, creds.SystemClipboard{})
	console.Bind(sh)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		loop.Run(gctx)
		return nil
	})
	g.Go(func() error {
		console.Run(gctx)
		// Console exit (quit command or closed stdin) ends the run.
		cancel()
		return nil
	})

	loop.Post(func() { sh.Restore() })

	_ = g.Wait()

	// The loop has stopped; shutdown runs single threaded.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	sh.Shutdown(shutdownCtx)
	log.Info("Shutdown complete.")
	return nil
}
