// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwarrenfield/genscope-cli/internal/browser/shadowdom"
	"github.com/mwarrenfield/genscope-cli/internal/config"
)

// Session is a single browser tab. All page operations run against it, and
// it must be closed when the scrape finishes.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    *config.Config

	onClose   func()
	closeOnce sync.Once
}

func newSession(ctx context.Context, allocatorCtx context.Context, logger *zap.Logger, cfg *config.Config) (*Session, error) {
	tabCtx, cancel := chromedp.NewContext(allocatorCtx)

	id := uuid.NewString()
	s := &Session{
		id:     id,
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.Named("session").With(zap.String("session_id", id)),
		cfg:    cfg,
	}

	// Materialize the tab now so a broken browser surfaces here, not on the
	// first navigation.
	initCtx, initCancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer initCancel()
	if err := chromedp.Run(initCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("tab creation failed: %w", err)
	}

	s.logger.Debug("Session initialized.")
	return s, nil
}

// run executes actions on the tab under a bounded timeout. The caller's
// context cancels the run as well.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, opCancel := context.WithTimeout(s.ctx, timeout)
	defer opCancel()
	stop := context.AfterFunc(ctx, opCancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate loads the URL and waits for the load event, bounded by the
// configured navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating session.", zap.String("url", url))

	timeout := s.cfg.Browser.NavigationTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if err := s.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Document captures a full snapshot of the page's node tree, piercing every
// shadow boundary, and links parent pointers so callers can walk upward.
// Each call returns a fresh snapshot; nodes from older snapshots go stale as
// the page re-renders.
func (s *Session) Document(ctx context.Context) (*cdp.Node, error) {
	var root *cdp.Node
	err := s.run(ctx, 30*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		n, err := dom.GetDocument().WithDepth(-1).WithPierce(true).Do(ctx)
		if err != nil {
			return err
		}
		root = n
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("document snapshot failed: %w", err)
	}
	shadowdom.LinkParents(root)
	return root, nil
}

// Snapshot writes a PNG screenshot of the current viewport to path.
func (s *Session) Snapshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, 30*time.Second, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("screenshot capture failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("screenshot write failed: %w", err)
	}
	s.logger.Info("Diagnostic screenshot written.", zap.String("path", path))
	return nil
}

// Close tears down the tab. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing session.")
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
	})
}
