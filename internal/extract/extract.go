// internal/extract/extract.go
// Field extraction strategies over a pierced DOM snapshot. Each strategy
// encodes one structural relationship between a stable landmark (a label, an
// anchor paragraph, a unit marker) and the value rendered near it. The
// strategies are pure functions over the node tree; they never talk to the
// browser, so a caller can re-run them against fresh snapshots while waiting
// for an async render to complete.
package extract

import (
	"regexp"
	"strings"

	"github.com/chromedp/cdproto/cdp"

	"github.com/mwarrenfield/genscope-cli/internal/browser/shadowdom"
)

// Field is one extracted reading. Absence is a normal outcome (the page may
// simply not have rendered yet), so it is reported via Found, not an error.
type Field struct {
	Name  string
	Raw   string
	Found bool
}

var floatPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// AdjacentValue finds the element whose trimmed text is exactly label, reads
// the full text of its parent row, and returns the first numeric substring
// after the label. Used for readings laid out as label/value pairs inside
// one container, e.g. "Battery Voltage (V)" next to "13.2".
func AdjacentValue(root *cdp.Node, name, label string) Field {
	f := Field{Name: name}
	labelNode := shadowdom.Walk(root, shadowdom.ByExactText(label))
	if labelNode == nil || labelNode.Parent == nil {
		return f
	}
	rowText := shadowdom.Text(labelNode.Parent)
	// The label itself may contain digits (e.g. a unit like "(V)"). Search
	// only the text after the label occurrence.
	if i := strings.Index(rowText, label); i >= 0 {
		rowText = rowText[i+len(label):]
	}
	raw := floatPattern.FindString(rowText)
	if raw == "" {
		return f
	}
	f.Raw = raw
	f.Found = true
	return f
}

// AnchorSibling finds a paragraph containing label and returns the trimmed
// text of the element immediately following it. Used for readings where the
// label and value are sibling paragraphs, e.g. the genset exercise record.
func AnchorSibling(root *cdp.Node, name, label string) Field {
	f := Field{Name: name}
	anchor := shadowdom.Walk(root, func(n *cdp.Node) bool {
		if n == nil || n.NodeType != cdp.NodeTypeElement {
			return false
		}
		if !strings.EqualFold(n.LocalName, "p") && !strings.EqualFold(n.NodeName, "P") {
			return false
		}
		return strings.Contains(shadowdom.Text(n), label)
	})
	if anchor == nil {
		return f
	}
	sibling := shadowdom.NextElementSibling(anchor)
	if sibling == nil {
		return f
	}
	raw := strings.TrimSpace(shadowdom.Text(sibling))
	if raw == "" {
		return f
	}
	f.Raw = raw
	f.Found = true
	return f
}

// TextNodeMatch finds a text leaf containing the unit marker and returns the
// full trimmed text of its parent element. Used for readings rendered as a
// single value-plus-unit run, e.g. "27.8 Hours".
func TextNodeMatch(root *cdp.Node, name, unit string) Field {
	f := Field{Name: name}
	leaf := shadowdom.Walk(root, func(n *cdp.Node) bool {
		return n != nil && n.NodeType == cdp.NodeTypeText && strings.Contains(n.NodeValue, unit)
	})
	if leaf == nil || leaf.Parent == nil {
		return f
	}
	raw := strings.TrimSpace(shadowdom.Text(leaf.Parent))
	if raw == "" {
		return f
	}
	f.Raw = raw
	f.Found = true
	return f
}
