package cli

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/circulo/circulo/internal/api"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the circulation HTTP API",
	Long: `Start the HTTP API server. Endpoints cover the catalog, patrons,
the loan lifecycle, fines and the overdue sweep; /metrics exposes
Prometheus counters when enabled in the config.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, db, cfg, err := buildService()
	if err != nil {
		return err
	}
	defer db.Close()

	server := api.NewServer(svc)
	if cfg.API.Metrics {
		server.EnableMetrics()
	}

	log.Printf("[serve] listening on %s (db %s)", cfg.API.Addr(), cfg.Storage.Path)
	return http.ListenAndServe(cfg.API.Addr(), server.Handler())
}
