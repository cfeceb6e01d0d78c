// internal/browser/shadowdom/walker.go

// Package shadowdom searches rendered-document snapshots whose nodes may own
// encapsulated shadow trees. The vendor portal builds its entire dashboard out
// of nested web components, so any element worth finding is usually buried
// several shadow roots deep; a plain child traversal silently finds nothing,
// which is the dominant failure mode this package exists to prevent.
//
// Snapshots come from DOM.getDocument with pierce=true, which materializes
// each shadow root as cdp.Node.ShadowRoots on its host.
package shadowdom

import (
	"strings"

	"github.com/chromedp/cdproto/cdp"
)

// Predicate decides whether a node is the one being searched for.
type Predicate func(*cdp.Node) bool

// Walk returns the first node under root (root included) matching pred, in
// pre-order. When a node hosts shadow trees they are entered depth-first at
// the point they are declared, before the node's ordinary children, so a
// match inside an encapsulated scope wins over a later sibling in the light
// tree.
//
// Subtrees that were regenerated mid-snapshot can surface as nil entries in
// the child lists; those are skipped rather than treated as fatal, because a
// partially rendered panel is indistinguishable from "not there yet" and the
// caller is polling anyway.
func Walk(root *cdp.Node, pred Predicate) *cdp.Node {
	if root == nil {
		return nil
	}
	if pred(root) {
		return root
	}
	for _, sr := range root.ShadowRoots {
		if found := Walk(sr, pred); found != nil {
			return found
		}
	}
	for _, c := range root.Children {
		if found := Walk(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// WalkAll collects every matching node in the same order Walk visits them.
// Used where candidates must be ranked (the sign-in button appears in several
// places and only one is visible).
func WalkAll(root *cdp.Node, pred Predicate) []*cdp.Node {
	var matches []*cdp.Node
	var visit func(n *cdp.Node)
	visit = func(n *cdp.Node) {
		if n == nil {
			return
		}
		if pred(n) {
			matches = append(matches, n)
		}
		for _, sr := range n.ShadowRoots {
			visit(sr)
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(root)
	return matches
}

// LinkParents fills in the Parent pointer on every node reachable from root,
// treating shadow roots as first-class children. The DOM protocol leaves
// Parent unset in getDocument results, but the extraction strategies climb
// upward (a value is often a sibling text node of its label, reachable only
// through the common ancestor).
func LinkParents(root *cdp.Node) {
	if root == nil {
		return
	}
	for _, sr := range root.ShadowRoots {
		if sr == nil {
			continue
		}
		sr.Parent = root
		LinkParents(sr)
	}
	for _, c := range root.Children {
		if c == nil {
			continue
		}
		c.Parent = root
		LinkParents(c)
	}
}

// Text returns the concatenated text content of n and all of its descendants,
// including text inside encapsulated scopes, in document order.
func Text(n *cdp.Node) string {
	var sb strings.Builder
	var visit func(n *cdp.Node)
	visit = func(n *cdp.Node) {
		if n == nil {
			return
		}
		if n.NodeType == cdp.NodeTypeText {
			sb.WriteString(n.NodeValue)
		}
		for _, sr := range n.ShadowRoots {
			visit(sr)
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}
