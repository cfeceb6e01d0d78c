// internal/browser/actions.go
// Element interactions for nodes located inside encapsulated scopes. CSS
// selector based chromedp actions cannot reach past a shadow boundary, so
// every interaction here resolves the node's backend ID to a JS object and
// acts on it directly.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// jsonEncode safely embeds a Go string as a JS string literal.
func jsonEncode(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// callOnNode resolves n and invokes fnDecl with the element bound to `this`.
func (s *Session) callOnNode(ctx context.Context, n *cdp.Node, fnDecl string) error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	return s.run(ctx, 15*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(n.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node %d: %w", n.BackendNodeID, err)
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx) //nolint:errcheck

		_, exc, err := runtime.CallFunctionOn(fnDecl).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("call on node %d: %w", n.BackendNodeID, err)
		}
		if exc != nil {
			return fmt.Errorf("call on node %d: %s", n.BackendNodeID, exc.Text)
		}
		return nil
	}))
}

// Click dispatches a full click sequence on the node. Some portal widgets
// listen on mousedown/mouseup rather than click, so all three fire.
func (s *Session) Click(ctx context.Context, n *cdp.Node) error {
	s.logger.Debug("Clicking node.", zap.Int64("backend_node_id", int64(n.BackendNodeID)))
	const decl = `function() {
		this.scrollIntoView({block: 'center', inline: 'center'});
		this.dispatchEvent(new MouseEvent('mousedown', {bubbles: true, composed: true}));
		this.dispatchEvent(new MouseEvent('mouseup', {bubbles: true, composed: true}));
		this.click();
	}`
	if err := s.callOnNode(ctx, n, decl); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// SetValue clears the input and assigns value, dispatching input and change
// events so framework bindings observe the edit.
func (s *Session) SetValue(ctx context.Context, n *cdp.Node, value string) error {
	s.logger.Debug("Setting node value.",
		zap.Int64("backend_node_id", int64(n.BackendNodeID)),
		zap.Int("value_length", len(value)))
	decl := fmt.Sprintf(`function() {
		if (this.disabled || this.readOnly) {
			throw new Error('element is disabled or readonly');
		}
		this.value = "";
		this.value = %s;
		this.dispatchEvent(new Event('input', {bubbles: true, composed: true}));
		this.dispatchEvent(new Event('change', {bubbles: true, composed: true}));
	}`, jsonEncode(value))
	if err := s.callOnNode(ctx, n, decl); err != nil {
		return fmt.Errorf("set value failed: %w", err)
	}
	return nil
}

// Visible reports whether the node currently has a rendered box. Nodes
// without layout (display:none, detached) yield an error from the box model
// query, which maps to false rather than a failure.
func (s *Session) Visible(ctx context.Context, n *cdp.Node) (bool, error) {
	if n == nil {
		return false, nil
	}
	var visible bool
	err := s.run(ctx, 15*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		box, err := dom.GetBoxModel().WithBackendNodeID(n.BackendNodeID).Do(ctx)
		if err != nil {
			// No box means not rendered.
			return nil
		}
		visible = box.Width > 0 && box.Height > 0
		return nil
	}))
	if err != nil {
		return false, fmt.Errorf("visibility check failed: %w", err)
	}
	return visible, nil
}
