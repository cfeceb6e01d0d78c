// internal/publish/publisher.go
// Confirmed delivery of a telemetry document to an MQTT broker. One message
// per invocation, QoS 1 with the retained flag so late subscribers see the
// most recent reading, and a bounded wait for the broker's acknowledgement
// so a dead broker fails the run instead of hanging it.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/mwarrenfield/genscope-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrInput marks a document rejected before any network activity.
	ErrInput = errors.New("invalid input document")
	// ErrTransport marks a connect, publish, or acknowledgement failure.
	ErrTransport = errors.New("broker delivery failed")
)

// ValidateBroker requires host to be a literal IPv4 or IPv6 address.
// Hostnames are rejected: the target broker lives on the local network and a
// typo'd hostname should fail fast, not fall through to DNS.
func ValidateBroker(host string) error {
	if net.ParseIP(host) == nil {
		return fmt.Errorf("broker %q is not a valid IP address", host)
	}
	return nil
}

// ValidateDocument checks the bytes read from stdin before any connection
// is attempted. Empty (or whitespace-only) and malformed JSON both map to
// ErrInput.
func ValidateDocument(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		return fmt.Errorf("%w: empty document", ErrInput)
	}
	if !json.Valid(b) {
		return fmt.Errorf("%w: malformed JSON", ErrInput)
	}
	return nil
}

// Result reports a confirmed delivery.
type Result struct {
	Accepted  bool
	MessageID uint16
}

// Publisher delivers documents over MQTT. newClient is swappable so tests
// can substitute a fake client without a broker.
type Publisher struct {
	logger    *zap.Logger
	cfg       config.MQTTConfig
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func NewPublisher(logger *zap.Logger, cfg config.MQTTConfig) *Publisher {
	return &Publisher{
		logger:    logger.Named("publisher"),
		cfg:       cfg,
		newClient: mqtt.NewClient,
	}
}

// Send connects to the broker, publishes payload to topic at QoS 1 with the
// retained flag, and blocks until the broker acknowledges or the configured
// timeout elapses. The connection is torn down on every path.
func (p *Publisher) Send(ctx context.Context, broker string, port int, topic string, payload []byte) (*Result, error) {
	if err := ValidateDocument(payload); err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("tcp://%s", net.JoinHostPort(broker, fmt.Sprintf("%d", port)))
	clientID := fmt.Sprintf("%s-%s", p.cfg.ClientIDPrefix, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(addr).
		SetClientID(clientID).
		SetConnectTimeout(p.cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetCleanSession(true)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	p.logger.Info("Connecting to broker.",
		zap.String("broker", addr),
		zap.String("client_id", clientID))

	client := p.newClient(opts)
	if err := p.await(ctx, client.Connect(), p.cfg.ConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %v", ErrTransport, addr, err)
	}
	defer client.Disconnect(250)

	token := client.Publish(topic, 1, true, payload)
	if err := p.await(ctx, token, p.cfg.PublishTimeout); err != nil {
		return nil, fmt.Errorf("%w: publish to %s: %v", ErrTransport, topic, err)
	}

	res := &Result{Accepted: true}
	if pt, ok := token.(*mqtt.PublishToken); ok {
		res.MessageID = pt.MessageID()
	}
	p.logger.Info("Delivery acknowledged.",
		zap.String("topic", topic),
		zap.Uint16("message_id", res.MessageID),
		zap.Int("payload_bytes", len(payload)))
	return res, nil
}

// await blocks on a token until completion, timeout, or ctx cancellation.
func (p *Publisher) await(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		step := time.Until(deadline)
		if step <= 0 {
			return fmt.Errorf("no acknowledgement within %v", timeout)
		}
		if step > 100*time.Millisecond {
			step = 100 * time.Millisecond
		}
		if token.WaitTimeout(step) {
			return token.Error()
		}
	}
}
