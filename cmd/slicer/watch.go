package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"slicer/internal/daemon"
	"slicer/internal/dashboard"
	"slicer/internal/store"
	"slicer/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch [dir]",
	GroupID: "advanced",
	Short:   "Revalidate artifacts as they change on disk",
	Long: `Watch a directory of artifact files and revalidate on every change.

The daemon validates everything once on startup, then debounces file
events so editors that save in bursts trigger a single revalidation.
Results are printed, recorded in the history database, and (with
--dashboard) broadcast to WebSocket clients.

Example usage:
  slicer watch                   # Watch the configured artifacts dir
  slicer watch planning/         # Watch a specific directory
  slicer watch --dashboard       # Also serve the live dashboard`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		cfg, err := loadProjectConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}

		dir := cfg.ArtifactsDir
		if len(args) == 1 {
			dir = args[0]
		}
		if debounce == 0 {
			debounce = time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
		}

		var history *store.Store
		if !noHistory {
			history, err = store.Open(cfg.HistoryDB)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
			} else {
				defer history.Close()
			}
		}

		handlers := multiHandler{&printHandler{}}

		var server *dashboard.Server
		if withDashboard {
			server = dashboard.NewServer(&dashboard.Config{
				Host:   cfg.Dashboard.Host,
				Port:   cfg.Dashboard.Port,
				Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
			})
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
				os.Exit(exitIOError)
			}
			defer server.Stop()

			dh := dashboard.NewHandler(server, log.New(os.Stderr, "[dashboard] ", log.LstdFlags))
			dh.AnnounceWatch(dir)
			handlers = append(handlers, dh)

			fmt.Printf("Dashboard: http://%s (ws://%s/ws)\n", server.GetAddr(), server.GetAddr())
		}

		d, err := daemon.NewWithConfig(dir, cfg, history, handlers, &daemon.Config{
			DebounceInterval: debounce,
			Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}

		fmt.Printf("Watching %s (press Ctrl+C to stop)\n", dir)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}
	},
}

// printHandler prints each validation outcome to the terminal.
type printHandler struct{}

func (h *printHandler) HandleValidation(ev daemon.Event) {
	switch {
	case ev.Removed:
		fmt.Printf("%s %s: removed\n", ui.RenderWarn("⚠"), ev.Path)
	case ev.Err != nil:
		fmt.Printf("%s %s: %v\n", ui.RenderFail("✗"), ev.Path, ev.Err)
	case ev.Result != nil:
		printResult(ev.Path, ev.SchemaName, ev.Result, false)
	}
}

// multiHandler fans one event out to several handlers.
type multiHandler []daemon.Handler

func (m multiHandler) HandleValidation(ev daemon.Event) {
	for _, h := range m {
		h.HandleValidation(ev)
	}
}

func init() {
	watchCmd.Flags().Bool("dashboard", false, "serve the WebSocket dashboard alongside the watcher")
	watchCmd.Flags().Duration("debounce", 0, "quiet period before revalidating (default from config)")
	watchCmd.Flags().Bool("no-history", false, "skip recording results in the history database")

	rootCmd.AddCommand(watchCmd)
}
