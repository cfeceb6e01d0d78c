// internal/scrape/orchestrator.go
// The scrape orchestrator drives one linear pass through the vendor portal:
// sign-in, authentication, then one tab per reading. Phases run strictly in
// order with no retries; any failure produces a log line naming the phase
// and the search target, a diagnostic screenshot, and a wrapped error. The
// session is left to the caller to close.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"go.uber.org/zap"

	"github.com/mwarrenfield/genscope-cli/internal/browser"
	"github.com/mwarrenfield/genscope-cli/internal/browser/shadowdom"
	"github.com/mwarrenfield/genscope-cli/internal/config"
	"github.com/mwarrenfield/genscope-cli/internal/extract"
	"github.com/mwarrenfield/genscope-cli/internal/payload"
)

var (
	// ErrElementNotFound marks a phase whose landmark never appeared.
	ErrElementNotFound = errors.New("element not found")
	// ErrAuthentication marks a failure during the credential phase.
	ErrAuthentication = errors.New("authentication failed")
)

// Driver is the browser surface the orchestrator needs. *browser.Session
// satisfies it; tests substitute a fake serving canned snapshots.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Document(ctx context.Context) (*cdp.Node, error)
	Click(ctx context.Context, n *cdp.Node) error
	SetValue(ctx context.Context, n *cdp.Node, value string) error
	Visible(ctx context.Context, n *cdp.Node) (bool, error)
	Snapshot(ctx context.Context, path string) error
}

// Diagnostic screenshot names, one per failure surface.
const (
	snapSignIn  = "sign_in_debug_render.png"
	snapLogin   = "login_debug_render.png"
	snapRuntime = "runtime_debug_render.png"
	snapBattery = "battery_debug_render.png"
	snapGenset  = "genset_debug_render.png"
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// Orchestrator runs the scrape against a single session.
type Orchestrator struct {
	logger *zap.Logger
	cfg    *config.Config
	driver Driver

	// now stamps last_updated; swappable for deterministic tests.
	now func() time.Time
}

func NewOrchestrator(logger *zap.Logger, cfg *config.Config, driver Driver) *Orchestrator {
	return &Orchestrator{
		logger: logger.Named("orchestrator"),
		cfg:    cfg,
		driver: driver,
		now:    time.Now,
	}
}

// Run executes the full portal pass and returns the normalized telemetry
// document.
func (o *Orchestrator) Run(ctx context.Context) (*payload.Document, error) {
	portal := o.cfg.Portal

	o.logger.Info("Scrape started.", zap.String("url", portal.URL))
	if err := o.driver.Navigate(ctx, portal.URL); err != nil {
		return nil, fmt.Errorf("portal navigation: %w", err)
	}

	if err := o.startSignIn(ctx); err != nil {
		return nil, err
	}
	if err := o.login(ctx); err != nil {
		return nil, err
	}

	runtimeRaw, err := o.extractRuntime(ctx)
	if err != nil {
		return nil, err
	}
	batteryRaw, err := o.extractBattery(ctx)
	if err != nil {
		return nil, err
	}
	exerciseRaw, err := o.extractExercise(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := payload.Normalize(runtimeRaw, batteryRaw, exerciseRaw, o.now())
	if err != nil {
		return nil, fmt.Errorf("payload normalization: %w", err)
	}

	o.logger.Info("Scrape complete.",
		zap.Float64("runtime_hours", doc.Generator.RuntimeHours),
		zap.Float64("battery_voltage", doc.Generator.BatteryVoltage),
		zap.String("last_exercise_date", doc.Generator.LastExerciseDate))
	return doc, nil
}

// startSignIn locates the sign-in control on the landing page and clicks it.
// The landing page renders several nodes carrying the sign-in text, so every
// candidate is logged before the first visible one is chosen.
func (o *Orchestrator) startSignIn(ctx context.Context) error {
	phase := "sign_in"
	target := o.cfg.Portal.SignInText

	root, err := o.waitForDocument(ctx, shadowdom.ByText(target))
	if err != nil {
		return o.fail(ctx, phase, target, snapSignIn, err)
	}

	candidates := shadowdom.WalkAll(root, shadowdom.ByText(target))
	var chosen *cdp.Node
	for i, c := range candidates {
		visible, verr := o.driver.Visible(ctx, c)
		if verr != nil {
			return o.fail(ctx, phase, target, snapSignIn, verr)
		}
		o.logger.Info("Sign-in candidate.",
			zap.Int("index", i),
			zap.String("tag", strings.ToLower(c.NodeName)),
			zap.String("text", strings.TrimSpace(shadowdom.Text(c))),
			zap.Bool("visible", visible))
		if chosen == nil && visible {
			chosen = c
		}
	}
	if chosen == nil {
		return o.fail(ctx, phase, target, snapSignIn,
			fmt.Errorf("%w: %d candidates, none visible", ErrElementNotFound, len(candidates)))
	}

	clickTarget := shadowdom.InteractiveAncestor(chosen)
	if err := o.driver.Click(ctx, clickTarget); err != nil {
		return o.fail(ctx, phase, target, snapSignIn, err)
	}
	o.logger.Info("Sign-in triggered.")
	return nil
}

// login fills the credential form and submits it.
func (o *Orchestrator) login(ctx context.Context) error {
	phase := "login"
	portal := o.cfg.Portal

	root, err := o.waitForDocument(ctx, shadowdom.BySelector(portal.UserSelector))
	if err != nil {
		return o.fail(ctx, phase, portal.UserSelector,
			snapLogin, fmt.Errorf("%w: %v", ErrAuthentication, err))
	}

	user := shadowdom.Walk(root, shadowdom.BySelector(portal.UserSelector))
	pass := shadowdom.Walk(root, shadowdom.BySelector(portal.PasswordSelector))
	submit := shadowdom.Walk(root, shadowdom.BySelector(portal.SubmitSelector))
	if user == nil || pass == nil || submit == nil {
		return o.fail(ctx, phase, portal.SubmitSelector,
			snapLogin, fmt.Errorf("%w: %w: login form incomplete", ErrAuthentication, ErrElementNotFound))
	}

	if err := o.driver.SetValue(ctx, user, portal.Username); err != nil {
		return o.fail(ctx, phase, portal.UserSelector, snapLogin, fmt.Errorf("%w: %v", ErrAuthentication, err))
	}
	if err := o.driver.SetValue(ctx, pass, portal.Password); err != nil {
		return o.fail(ctx, phase, portal.PasswordSelector, snapLogin, fmt.Errorf("%w: %v", ErrAuthentication, err))
	}
	if err := o.driver.Click(ctx, submit); err != nil {
		return o.fail(ctx, phase, portal.SubmitSelector, snapLogin, fmt.Errorf("%w: %v", ErrAuthentication, err))
	}

	o.logger.Info("Credentials submitted.")
	return nil
}

// extractRuntime opens the maintenance tab and reads the engine runtime.
func (o *Orchestrator) extractRuntime(ctx context.Context) (string, error) {
	phase := "runtime"
	portal := o.cfg.Portal

	if err := o.openTab(ctx, portal.TabMaintenance); err != nil {
		return "", o.fail(ctx, phase, portal.TabMaintenance, snapRuntime, err)
	}

	var field extract.Field
	err := browser.WaitUntil(ctx, portal.WaitTimeout, portal.PollInterval, func(ctx context.Context) (bool, error) {
		doc, derr := o.driver.Document(ctx)
		if derr != nil {
			return false, derr
		}
		// The pane label renders before the reading does; requiring both
		// avoids matching a unit string elsewhere on a half-drawn page.
		if shadowdom.Walk(doc, shadowdom.ByText(portal.LabelRuntime)) == nil {
			return false, nil
		}
		field = extract.TextNodeMatch(doc, "runtime_hours", portal.LabelUnits)
		return field.Found, nil
	})
	if err != nil {
		return "", o.fail(ctx, phase, portal.LabelUnits, snapRuntime, err)
	}

	o.logger.Info("Runtime extracted.", zap.String("raw", field.Raw))
	return field.Raw, nil
}

// extractBattery opens the generator data tab and reads the battery voltage.
func (o *Orchestrator) extractBattery(ctx context.Context) (string, error) {
	phase := "battery"
	portal := o.cfg.Portal

	if err := o.openTab(ctx, portal.TabGeneratorData); err != nil {
		return "", o.fail(ctx, phase, portal.TabGeneratorData, snapBattery, err)
	}

	var field extract.Field
	err := browser.WaitUntil(ctx, portal.WaitTimeout, portal.PollInterval, func(ctx context.Context) (bool, error) {
		doc, derr := o.driver.Document(ctx)
		if derr != nil {
			return false, derr
		}
		field = extract.AdjacentValue(doc, "battery_voltage", portal.LabelBattery)
		return field.Found, nil
	})
	if err != nil {
		return "", o.fail(ctx, phase, portal.LabelBattery, snapBattery, err)
	}

	o.logger.Info("Battery voltage extracted.", zap.String("raw", field.Raw))
	return field.Raw, nil
}

// extractExercise opens the notifications tab, then its events sub-tab, and
// reads the last genset exercise record. The raw text must carry a 4-digit
// year; the portal renders a placeholder row before the real record loads,
// and publishing the placeholder would be worse than failing.
func (o *Orchestrator) extractExercise(ctx context.Context) (string, error) {
	phase := "genset"
	portal := o.cfg.Portal

	if err := o.openTab(ctx, portal.TabNotifications); err != nil {
		return "", o.fail(ctx, phase, portal.TabNotifications, snapGenset, err)
	}
	if err := o.openTab(ctx, portal.TabEvents); err != nil {
		return "", o.fail(ctx, phase, portal.TabEvents, snapGenset, err)
	}

	var field extract.Field
	err := browser.WaitUntil(ctx, portal.WaitTimeout, portal.PollInterval, func(ctx context.Context) (bool, error) {
		doc, derr := o.driver.Document(ctx)
		if derr != nil {
			return false, derr
		}
		field = extract.AnchorSibling(doc, "last_exercise_date", portal.LabelExercise)
		return field.Found && yearPattern.MatchString(field.Raw), nil
	})
	if err != nil {
		return "", o.fail(ctx, phase, portal.LabelExercise, snapGenset, err)
	}

	o.logger.Info("Exercise record extracted.", zap.String("raw", field.Raw))
	return field.Raw, nil
}

// openTab waits for a tab control carrying the given text and clicks it.
func (o *Orchestrator) openTab(ctx context.Context, label string) error {
	root, err := o.waitForDocument(ctx, shadowdom.ByText(label))
	if err != nil {
		return err
	}
	tab := shadowdom.Walk(root, shadowdom.ByText(label))
	if tab == nil {
		return fmt.Errorf("%w: tab %q", ErrElementNotFound, label)
	}
	if err := o.driver.Click(ctx, shadowdom.InteractiveAncestor(tab)); err != nil {
		return fmt.Errorf("tab %q: %w", label, err)
	}
	o.logger.Info("Tab opened.", zap.String("tab", label))
	return nil
}

// waitForDocument polls fresh snapshots until pred matches somewhere in the
// tree, returning the snapshot that matched. Nodes in it stay coherent with
// each other, which matters because extraction walks parent pointers.
func (o *Orchestrator) waitForDocument(ctx context.Context, pred shadowdom.Predicate) (*cdp.Node, error) {
	portal := o.cfg.Portal
	var root *cdp.Node
	err := browser.WaitUntil(ctx, portal.WaitTimeout, portal.PollInterval, func(ctx context.Context) (bool, error) {
		doc, derr := o.driver.Document(ctx)
		if derr != nil {
			return false, derr
		}
		if shadowdom.Walk(doc, pred) == nil {
			return false, nil
		}
		root = doc
		return true, nil
	})
	if err != nil {
		if errors.Is(err, browser.ErrNotReady) {
			return nil, fmt.Errorf("%w: %v", ErrElementNotFound, err)
		}
		return nil, err
	}
	return root, nil
}

// fail emits the phase's diagnostic trail and returns the wrapped error.
// Screenshot failures are logged but never mask the phase error.
func (o *Orchestrator) fail(ctx context.Context, phase, target, snapshot string, err error) error {
	o.logger.Error("Scrape phase failed.",
		zap.String("phase", phase),
		zap.String("target", target),
		zap.String("screenshot", snapshot),
		zap.Error(err))
	if snapErr := o.driver.Snapshot(ctx, snapshot); snapErr != nil {
		o.logger.Warn("Diagnostic screenshot failed.", zap.String("path", snapshot), zap.Error(snapErr))
	}
	return fmt.Errorf("phase %s (target %q): %w", phase, target, err)
}
