package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"slicer/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Start the real-time validation dashboard server",
	Long: `Start a WebSocket dashboard server for monitoring validation state.

The server broadcasts validation results and aggregate statistics to
connected clients. On its own it serves an empty stream; pair it with
'slicer watch --dashboard' to feed it, or run it standalone when another
process pushes results.

WebSocket messages include:
- validation_result: an artifact was validated (violations, warnings)
- artifact_removed: an artifact file was deleted
- stats: aggregate pass/fail counts and violation kinds
- watch_started: a watch session began

Example usage:
  slicer dashboard                 # Use the configured host and port
  slicer dashboard --port 9000     # Override the port

Connect with a WebSocket client:
  ws://localhost:8844/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadProjectConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}

		host := cfg.Dashboard.Host
		port := cfg.Dashboard.Port
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		server := dashboard.NewServer(&dashboard.Config{
			Host:   host,
			Port:   port,
			Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
		})

		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(exitIOError)
		}

		addr := server.GetAddr()
		fmt.Printf("Dashboard server started on http://%s\n", addr)
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Printf("Health check: http://%s/health\n", addr)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(exitIOError)
		}

		fmt.Println("Dashboard server stopped")
	},
}

func init() {
	dashboardCmd.Flags().String("host", "", "host to bind (default from config)")
	dashboardCmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")

	rootCmd.AddCommand(dashboardCmd)
}
