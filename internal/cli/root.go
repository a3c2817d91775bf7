// Package cli implements the circulo command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/circulo/circulo/internal/app/circulation"
	"github.com/circulo/circulo/internal/daemon"
	"github.com/circulo/circulo/internal/domain"
	"github.com/circulo/circulo/internal/infra/notify"
	"github.com/circulo/circulo/internal/infra/sqlite"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config.toml (default $CIRCULO_HOME/config.toml)")
}

var rootCmd = &cobra.Command{
	Use:   "circulo",
	Short: "Library circulation core",
	Long: `circulo tracks a library's loans and fines: copy availability,
patron identity validation, the loan lifecycle from draft to return,
fine computation for overdue, damaged and lost copies, and the daily
overdue sweep.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildService loads the configuration, opens the database and wires the
// circulation service. The caller must Close the returned DB.
func buildService() (*circulation.Service, *sqlite.DB, daemon.Config, error) {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return nil, nil, cfg, err
	}
	if err := os.MkdirAll(daemon.Home(), 0o755); err != nil {
		return nil, nil, cfg, fmt.Errorf("create home dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, cfg, err
	}

	var sender domain.Notifier = notify.LogSender{}
	if cfg.Notify.SMTPAddr != "" {
		sender = notify.NewSMTPSender(cfg.Notify.SMTPAddr, cfg.Notify.From,
			cfg.Notify.Username, cfg.Notify.Password)
	}

	svc := circulation.New(circulation.SystemClock{},
		sqlite.NewAuthorStore(db),
		sqlite.NewTitleStore(db),
		sqlite.NewPatronStore(db),
		sqlite.NewLoanStore(db, cfg.Policy.LoanCodePrefix),
		sqlite.NewFineStore(db, cfg.Policy.FineCodePrefix),
		sender,
		circulation.Policy{
			LoanPeriodDays:   cfg.Policy.LoanPeriodDays,
			OverdueDailyRate: cfg.Policy.OverdueDailyRate,
			DamagedFactor:    cfg.Policy.DamagedFactor,
			LostFactor:       cfg.Policy.LostFactor,
		})
	return svc, db, cfg, nil
}
