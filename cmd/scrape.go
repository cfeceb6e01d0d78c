// -- cmd/scrape.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwarrenfield/genscope-cli/internal/browser"
	"github.com/mwarrenfield/genscope-cli/internal/observability"
	"github.com/mwarrenfield/genscope-cli/internal/scrape"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract generator telemetry from the vendor portal.",
	Long: `Logs into the vendor dashboard with the MY_USERNAME and MY_PASSWORD
environment variables, walks the tabs, and prints one compact JSON telemetry
document to stdout. Progress and failures go to stderr and the audit log
file; stdout carries nothing but the document.`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	if cfg.Portal.Username == "" || cfg.Portal.Password == "" {
		return errors.New("portal credentials missing: set MY_USERNAME and MY_PASSWORD")
	}

	ctx := cmd.Context()
	manager, err := browser.NewManager(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("browser startup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown reported an error: " + err.Error())
		}
	}()

	session, err := manager.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("session startup: %w", err)
	}
	defer session.Close()

	doc, err := scrape.NewOrchestrator(logger, cfg, session).Run(ctx)
	if err != nil {
		return err
	}

	line, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("payload encoding: %w", err)
	}

	// The document is the program's entire stdout contract.
	fmt.Fprintln(cmd.OutOrStdout(), string(line))
	return nil
}
