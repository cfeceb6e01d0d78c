// internal/publish/publisher_test.go
package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/mwarrenfield/genscope-cli/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeToken satisfies mqtt.Token with a scripted outcome. ack=false means
// the acknowledgement never arrives.
type fakeToken struct {
	ack  bool
	err  error
	done chan struct{}
}

func newFakeToken(ack bool, err error) *fakeToken {
	t := &fakeToken{ack: ack, err: err, done: make(chan struct{})}
	if ack {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { return t.ack }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.ack }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	connectToken mqtt.Token
	publishToken mqtt.Token

	connected    bool
	disconnected bool
	published    []publishCall
}

func (c *fakeClient) IsConnected() bool      { return c.connected }
func (c *fakeClient) IsConnectionOpen() bool { return c.connected }
func (c *fakeClient) Connect() mqtt.Token {
	c.connected = true
	return c.connectToken
}
func (c *fakeClient) Disconnect(uint) { c.disconnected = true }
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, publishCall{
		topic:    topic,
		qos:      qos,
		retained: retained,
		payload:  payload.([]byte),
	})
	return c.publishToken
}
func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token { return nil }
func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return nil
}
func (c *fakeClient) Unsubscribe(...string) mqtt.Token        { return nil }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler)    {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func testCfg() config.MQTTConfig {
	return config.MQTTConfig{
		ConnectTimeout: 200 * time.Millisecond,
		PublishTimeout: 200 * time.Millisecond,
		ClientIDPrefix: "genscope",
	}
}

func newTestPublisher(t *testing.T, client *fakeClient) (*Publisher, *[]*mqtt.ClientOptions) {
	p := NewPublisher(zaptest.NewLogger(t), testCfg())
	var captured []*mqtt.ClientOptions
	p.newClient = func(opts *mqtt.ClientOptions) mqtt.Client {
		captured = append(captured, opts)
		return client
	}
	return p, &captured
}

func TestSendPublishesRetainedQoS1AndDisconnects(t *testing.T) {
	client := &fakeClient{
		connectToken: newFakeToken(true, nil),
		publishToken: newFakeToken(true, nil),
	}
	p, _ := newTestPublisher(t, client)

	payload := []byte(`{"generator":{"battery_voltage":13.2}}`)
	res, err := p.Send(context.Background(), "127.0.0.1", 1883, "home/generator", payload)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	require.Len(t, client.published, 1)
	call := client.published[0]
	assert.Equal(t, "home/generator", call.topic)
	assert.Equal(t, byte(1), call.qos)
	assert.True(t, call.retained)
	assert.Equal(t, payload, call.payload)
	assert.True(t, client.disconnected, "connection must be released after delivery")
}

func TestSendNeverAcknowledgedFailsBounded(t *testing.T) {
	client := &fakeClient{
		connectToken: newFakeToken(true, nil),
		publishToken: newFakeToken(false, nil),
	}
	p, _ := newTestPublisher(t, client)

	start := time.Now()
	_, err := p.Send(context.Background(), "127.0.0.1", 1883, "home/generator", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Less(t, time.Since(start), 2*time.Second, "a silent broker must not hang the process")
	assert.True(t, client.disconnected, "connection must be released even when the ack never comes")
}

func TestSendConnectFailure(t *testing.T) {
	client := &fakeClient{
		connectToken: newFakeToken(true, errors.New("connection refused")),
	}
	p, _ := newTestPublisher(t, client)

	_, err := p.Send(context.Background(), "127.0.0.1", 1883, "home/generator", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Empty(t, client.published)
}

func TestSendRejectsBadDocumentWithoutConnecting(t *testing.T) {
	client := &fakeClient{}
	p, captured := newTestPublisher(t, client)

	for _, payload := range [][]byte{nil, []byte(""), []byte("   \n"), []byte("{not json")} {
		_, err := p.Send(context.Background(), "127.0.0.1", 1883, "home/generator", payload)
		require.Error(t, err, "payload %q", payload)
		assert.ErrorIs(t, err, ErrInput, "payload %q", payload)
	}
	assert.Empty(t, *captured, "no client may be constructed for rejected input")
	assert.False(t, client.connected)
}

func TestSendCanceledContext(t *testing.T) {
	client := &fakeClient{
		connectToken: newFakeToken(false, nil),
	}
	p, _ := newTestPublisher(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Send(ctx, "127.0.0.1", 1883, "home/generator", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestValidateBroker(t *testing.T) {
	assert.NoError(t, ValidateBroker("127.0.0.1"))
	assert.NoError(t, ValidateBroker("192.168.1.20"))
	assert.NoError(t, ValidateBroker("::1"))
	assert.Error(t, ValidateBroker("999.1.1.1"))
	assert.Error(t, ValidateBroker("broker.local"))
	assert.Error(t, ValidateBroker(""))
	assert.Error(t, ValidateBroker("192.168.1"))
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument([]byte(`{"generator":{}}`)))
	assert.ErrorIs(t, ValidateDocument(nil), ErrInput)
	assert.ErrorIs(t, ValidateDocument([]byte("  \n\t")), ErrInput)
	assert.ErrorIs(t, ValidateDocument([]byte(`{"generator":`)), ErrInput)
}
