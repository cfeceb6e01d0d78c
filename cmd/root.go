// -- cmd/root.go --
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mwarrenfield/genscope-cli/internal/config"
	"github.com/mwarrenfield/genscope-cli/internal/observability"
)

var (
	cfgFile string

	// cfg is built once in PersistentPreRunE and shared by the subcommands.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "genscope",
	Short: "Generator portal telemetry scraper and MQTT forwarder.",
	Long: `genscope extracts generator telemetry from the vendor's cloud dashboard
and forwards it to an MQTT broker with confirmed delivery.

The two halves compose over a pipe:

  genscope scrape | genscope publish 192.168.1.20 home/generator`,
	// Version is dynamically set at build time. See cmd/version.go.
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Runs before any command, setting up config and logging.
		v, err := initializeViper()
		if err != nil {
			return err
		}

		cfg, err = config.NewFromViper(v)
		if err != nil {
			// Initialize a fallback logger so the failure is still recorded.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "genscope"})
			return fmt.Errorf("failed to load config: %w", err)
		}

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Info("Starting genscope", zap.String("version", Version), zap.String("command", cmd.Name()))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Any failure exits with status 1.
func Execute() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, err)
		observability.Sync()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initializeViper reads the optional config file and the environment.
func initializeViper() (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GENSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}
	return v, nil
}
