// internal/browser/shadowdom/locator.go
package shadowdom

import (
	"strings"

	"github.com/chromedp/cdproto/cdp"
)

// interactiveTags are element kinds that count as leaf-like even when they
// have element children: a tab control often wraps its caption in spans, and
// the control, not the caption wrapper's container, is the thing to match.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
	"summary":  true,
}

// FindSelector returns the first node in pre-order (shadow scopes included)
// matching the structural selector, or nil when there is no match.
func FindSelector(root *cdp.Node, selector string) *cdp.Node {
	return Walk(root, BySelector(selector))
}

// FindText returns the first leaf-like node whose trimmed text contains
// target, case-insensitively, or nil. Container nodes that merely enclose a
// deeper match are never returned; the match is always the most specific
// text-bearing element, deterministically.
func FindText(root *cdp.Node, target string) *cdp.Node {
	return Walk(root, ByText(target))
}

// BySelector builds a predicate for a structural selector of the forms used
// against the portal: `tag`, `#id`, `.class`, `tag.class`, and
// `tag[attr="value"]` (quotes optional), in any combination.
func BySelector(selector string) Predicate {
	sel := parseSelector(selector)
	return func(n *cdp.Node) bool {
		if n == nil || n.NodeType != cdp.NodeTypeElement {
			return false
		}
		return sel.matches(n)
	}
}

// ByText builds a case-insensitive substring predicate over trimmed text
// content, restricted to leaf-like nodes.
func ByText(target string) Predicate {
	want := strings.ToLower(strings.TrimSpace(target))
	return func(n *cdp.Node) bool {
		if n == nil || n.NodeType != cdp.NodeTypeElement || !leafLike(n) {
			return false
		}
		text := strings.ToLower(strings.TrimSpace(Text(n)))
		return text != "" && strings.Contains(text, want)
	}
}

// ByExactText builds a predicate matching nodes whose full trimmed text
// equals label. The first pre-order hit is the outermost element rendering
// exactly the label, which is the anchor the adjacent-value extraction
// strategy wants.
func ByExactText(label string) Predicate {
	want := strings.TrimSpace(label)
	return func(n *cdp.Node) bool {
		if n == nil || n.NodeType != cdp.NodeTypeElement {
			return false
		}
		return strings.TrimSpace(Text(n)) == want
	}
}

// InteractiveAncestor walks from n upward (n included) to the nearest
// anchor or button element. The portal's clickable target and its
// text-bearing node are frequently different elements, so clicking the text
// node itself does nothing; returns n when no such ancestor exists.
func InteractiveAncestor(n *cdp.Node) *cdp.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.NodeType != cdp.NodeTypeElement {
			continue
		}
		switch tagName(cur) {
		case "a", "button":
			return cur
		}
	}
	if n != nil && n.Parent != nil && n.Parent.NodeType == cdp.NodeTypeElement {
		// Fall back to the direct parent element, mirroring the "click the
		// parent of the matched text" behavior for sign-in flows where the
		// clickable wrapper is a styled div.
		return n.Parent
	}
	return n
}

// NextElementSibling returns the element immediately following n among its
// parent's children, or nil.
func NextElementSibling(n *cdp.Node) *cdp.Node {
	if n == nil || n.Parent == nil {
		return nil
	}
	found := false
	for _, c := range n.Parent.Children {
		if c == nil {
			continue
		}
		if found && c.NodeType == cdp.NodeTypeElement {
			return c
		}
		if c == n {
			found = true
		}
	}
	return nil
}

// leafLike reports whether n has no element children, or is an inherently
// interactive element kind.
func leafLike(n *cdp.Node) bool {
	if interactiveTags[tagName(n)] {
		return true
	}
	if len(n.ShadowRoots) > 0 {
		return false
	}
	for _, c := range n.Children {
		if c != nil && c.NodeType == cdp.NodeTypeElement {
			return false
		}
	}
	return true
}

func tagName(n *cdp.Node) string {
	if n.LocalName != "" {
		return strings.ToLower(n.LocalName)
	}
	return strings.ToLower(n.NodeName)
}

// attributeMap flattens the protocol's name/value attribute pairs.
func attributeMap(n *cdp.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attributes)/2)
	for i := 0; i+1 < len(n.Attributes); i += 2 {
		attrs[strings.ToLower(n.Attributes[i])] = n.Attributes[i+1]
	}
	return attrs
}

// -- selector parsing --

type attrMatch struct {
	key   string
	value string
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

func (s simpleSelector) matches(n *cdp.Node) bool {
	if s.tag != "" && tagName(n) != s.tag {
		return false
	}
	attrs := attributeMap(n)
	if s.id != "" && attrs["id"] != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(attrs["class"])
		for _, want := range s.classes {
			ok := false
			for _, c := range have {
				if c == want {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
	}
	for _, am := range s.attrs {
		if attrs[am.key] != am.value {
			return false
		}
	}
	return true
}

// parseSelector handles the single-compound-selector grammar described on
// BySelector. Unsupported syntax degrades to a never-matching selector
// rather than panicking; the caller sees "not found" and fails its phase
// with a diagnostic, which is the correct outcome for a bad anchor.
func parseSelector(selector string) simpleSelector {
	var sel simpleSelector
	rest := strings.TrimSpace(selector)

	readName := func(s string) (string, string) {
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '#', '.', '[':
				return s[:i], s[i:]
			}
		}
		return s, ""
	}

	if rest != "" && rest[0] != '#' && rest[0] != '.' && rest[0] != '[' {
		sel.tag, rest = readName(rest)
		sel.tag = strings.ToLower(sel.tag)
	}
	for rest != "" {
		switch rest[0] {
		case '#':
			sel.id, rest = readName(rest[1:])
		case '.':
			var class string
			class, rest = readName(rest[1:])
			sel.classes = append(sel.classes, class)
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return simpleSelector{tag: "\x00unparseable"}
			}
			body := rest[1:end]
			rest = rest[end+1:]
			eq := strings.IndexByte(body, '=')
			if eq < 0 {
				return simpleSelector{tag: "\x00unparseable"}
			}
			key := strings.ToLower(strings.TrimSpace(body[:eq]))
			val := strings.TrimSpace(body[eq+1:])
			val = strings.Trim(val, `"'`)
			sel.attrs = append(sel.attrs, attrMatch{key: key, value: val})
		default:
			return simpleSelector{tag: "\x00unparseable"}
		}
	}
	return sel
}
