// -- cmd/cmd_test.go --
package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwarrenfield/genscope-cli/internal/publish"
)

func TestValidateBrokerArg(t *testing.T) {
	assert.NoError(t, validateBrokerArg(publishCmd, []string{"192.168.1.20", "home/generator"}))
	assert.NoError(t, validateBrokerArg(publishCmd, []string{"::1", "home/generator"}))
	assert.Error(t, validateBrokerArg(publishCmd, []string{"999.1.1.1", "home/generator"}))
	assert.Error(t, validateBrokerArg(publishCmd, []string{"broker.local", "home/generator"}))
}

func TestPublishArgCount(t *testing.T) {
	argsFn := publishCmd.Args
	assert.Error(t, argsFn(publishCmd, []string{"192.168.1.20"}))
	assert.Error(t, argsFn(publishCmd, []string{"192.168.1.20", "home/generator", "extra"}))
	assert.NoError(t, argsFn(publishCmd, []string{"192.168.1.20", "home/generator"}))
}

func TestReadDocument(t *testing.T) {
	b, err := readDocument(strings.NewReader(`{"generator":{"battery_voltage":13.2}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"generator":{"battery_voltage":13.2}}`, string(b))
}

func TestReadDocumentRejectsEmptyAndMalformed(t *testing.T) {
	for _, input := range []string{"", "   \n", `{"generator":`} {
		_, err := readDocument(strings.NewReader(input))
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, publish.ErrInput, "input %q", input)
	}
}

func TestPublishPortDefault(t *testing.T) {
	flag := publishCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "1883", flag.DefValue)
	assert.Equal(t, "p", flag.Shorthand)
}
