// -- cmd/publish.go --
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mwarrenfield/genscope-cli/internal/observability"
	"github.com/mwarrenfield/genscope-cli/internal/publish"
)

var publishPort int

var publishCmd = &cobra.Command{
	Use:   "publish <broker-ip> <topic>",
	Short: "Forward a telemetry document from stdin to an MQTT broker.",
	Long: `Reads one JSON telemetry document from stdin and publishes it to the
given topic at QoS 1 with the retained flag, blocking until the broker
acknowledges delivery. Broker credentials come from the HA_USERNAME and
HA_PASSWORD environment variables. Empty or malformed input fails before any
connection is attempted.`,
	Args: cobra.MatchAll(cobra.ExactArgs(2), validateBrokerArg),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().IntVarP(&publishPort, "port", "p", 1883, "broker TCP port")
	rootCmd.AddCommand(publishCmd)
}

// validateBrokerArg rejects a non-IP broker before RunE ever executes.
func validateBrokerArg(cmd *cobra.Command, args []string) error {
	return publish.ValidateBroker(args[0])
}

func runPublish(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	broker, topic := args[0], args[1]

	payload, err := readDocument(cmd.InOrStdin())
	if err != nil {
		return err
	}

	publisher := publish.NewPublisher(logger, cfg.MQTT)
	res, err := publisher.Send(cmd.Context(), broker, publishPort, topic, payload)
	if err != nil {
		return err
	}

	logger.Info("Telemetry forwarded.",
		zap.String("broker", broker),
		zap.Int("port", publishPort),
		zap.String("topic", topic),
		zap.Uint16("message_id", res.MessageID))
	return nil
}

// readDocument drains stdin and validates the document before any network
// activity happens.
func readDocument(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if err := publish.ValidateDocument(b); err != nil {
		return nil, err
	}
	return b, nil
}
