// internal/browser/manager_test.go
package browser

import (
	"runtime"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mwarrenfield/genscope-cli/internal/config"
)

func TestBuildAllocatorOptions(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Browser.Args = []string{"--proxy-server=http://127.0.0.1:8080", "--disable-sync"}

	m := &Manager{logger: zaptest.NewLogger(t), cfg: cfg}
	opts := m.buildAllocatorOptions()

	// Defaults kept intact, then the automation flag override, the four
	// fixed flags, window size, user agent, and the two configured args.
	want := len(chromedp.DefaultExecAllocatorOptions) + 7 + len(cfg.Browser.Args)
	if runtime.GOOS == "linux" {
		want += 3
	}
	require.Len(t, opts, want)
	for _, opt := range opts {
		assert.NotNil(t, opt)
	}
}

func TestBuildAllocatorOptionsWithoutUserAgent(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Browser.UserAgent = ""

	m := &Manager{logger: zaptest.NewLogger(t), cfg: cfg}
	opts := m.buildAllocatorOptions()

	want := len(chromedp.DefaultExecAllocatorOptions) + 6
	if runtime.GOOS == "linux" {
		want += 3
	}
	assert.Len(t, opts, want)
}
