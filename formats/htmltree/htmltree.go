// Package htmltree builds the minimal DOM-shaped diff.Tree the §8.2
// scenario 7 end-to-end test needs (HTML diff/apply roundtrip), and
// renders one back to text.
//
// A full HTML5 tokenizer (character references, implied end tags, foster
// parenting, the works) is explicitly out of scope per spec §1 ("individual
// per-format tokenizers... are out of scope"); this package is the
// hand-rolled minimum needed to drive the concrete roundtrip scenario the
// spec names, the same way formats/json's parser is a minimal bring-up
// rather than a spec-compliant tokenizer.
package htmltree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/facet-rs/facet-sub005/diff"
	"github.com/facet-rs/facet-sub005/ferrors"
)

// TextKind is the Kind tag htmltree gives text nodes; element nodes use
// their tag name directly as Kind (so a <div> node has Kind "div"), which
// is what lets diff.Match's kind-equality rule line up same-tag elements.
const TextKind = "text"

// Parse reads a minimal HTML fragment (nested elements, no attributes
// required but supported, no script/style/comment handling, no entity
// decoding) into a diff.Tree whose root is a synthetic "document" node
// wrapping the top-level element(s), finalized and ready for diff.Match.
func Parse(src string) (*diff.Tree, error) {
	p := &parser{src: src}
	t := diff.NewTree()
	root := t.AddNode("document", nil, -1)
	if err := p.parseChildren(t, root, ""); err != nil {
		return nil, err
	}
	t.Finalize(root)
	return t, nil
}

type parser struct {
	src string
	pos int
}

// parseChildren consumes nodes until it sees the closing tag for
// `untilTag` (or EOF, when untilTag == "").
func (p *parser) parseChildren(t *diff.Tree, parent diff.NodeID, untilTag string) error {
	for {
		if p.pos >= len(p.src) {
			if untilTag != "" {
				return ferrors.New(ferrors.UnexpectedEOF, "unclosed <%s>", untilTag)
			}
			return nil
		}
		if p.peekCloseTag(untilTag) {
			return nil
		}
		if strings.HasPrefix(p.src[p.pos:], "</") {
			// A close tag for something other than what our caller is
			// waiting on means an earlier element's children ended; the
			// caller above us will see it.
			return nil
		}
		if strings.HasPrefix(p.src[p.pos:], "<") {
			if err := p.parseElement(t, parent); err != nil {
				return err
			}
			continue
		}
		p.parseText(t, parent)
	}
}

func (p *parser) peekCloseTag(tag string) bool {
	if tag == "" {
		return false
	}
	rest := p.src[p.pos:]
	prefix := "</" + tag
	return strings.HasPrefix(rest, prefix) &&
		len(rest) > len(prefix) && (rest[len(prefix)] == '>' || rest[len(prefix)] == ' ')
}

func (p *parser) parseText(t *diff.Tree, parent diff.NodeID) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '<' {
		p.pos++
	}
	text := p.src[start:p.pos]
	if strings.TrimSpace(text) == "" {
		return
	}
	t.AddNode(TextKind, map[string]string{"text": text}, parent)
}

func (p *parser) parseElement(t *diff.Tree, parent diff.NodeID) error {
	if p.src[p.pos] != '<' {
		return ferrors.New(ferrors.UnexpectedChar, "expected '<' at byte %d", p.pos)
	}
	p.pos++
	nameStart := p.pos
	for p.pos < len(p.src) && !isTagDelim(p.src[p.pos]) {
		p.pos++
	}
	tag := p.src[nameStart:p.pos]
	if tag == "" {
		return ferrors.New(ferrors.UnexpectedChar, "empty tag name at byte %d", nameStart)
	}

	attrs := map[string]string{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return ferrors.New(ferrors.UnexpectedEOF, "unterminated <%s>", tag)
		}
		if p.src[p.pos] == '/' || p.src[p.pos] == '>' {
			break
		}
		if err := p.parseAttr(attrs); err != nil {
			return err
		}
	}

	selfClosing := false
	if p.pos < len(p.src) && p.src[p.pos] == '/' {
		selfClosing = true
		p.pos++
	}
	if p.pos >= len(p.src) || p.src[p.pos] != '>' {
		return ferrors.New(ferrors.UnexpectedChar, "expected '>' closing <%s>", tag)
	}
	p.pos++ // consume '>'

	node := t.AddNode(tag, attrs, parent)
	if selfClosing || voidElement(tag) {
		return nil
	}

	if err := p.parseChildren(t, node, tag); err != nil {
		return err
	}

	if !strings.HasPrefix(p.src[p.pos:], "</"+tag) {
		return ferrors.New(ferrors.UnexpectedToken, "expected closing tag for <%s>", tag)
	}
	p.pos += len("</" + tag)
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '>' {
		return ferrors.New(ferrors.UnexpectedChar, "expected '>' in closing tag for </%s>", tag)
	}
	p.pos++
	return nil
}

func (p *parser) parseAttr(attrs map[string]string) error {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '=' && !isTagDelim(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return ferrors.New(ferrors.UnexpectedChar, "empty attribute name at byte %d", start)
	}
	if p.pos >= len(p.src) || p.src[p.pos] != '=' {
		attrs[name] = ""
		return nil
	}
	p.pos++ // consume '='
	if p.pos >= len(p.src) {
		return ferrors.New(ferrors.UnexpectedEOF, "unterminated attribute value for %s", name)
	}
	quote := p.src[p.pos]
	if quote != '"' && quote != '\'' {
		return ferrors.New(ferrors.UnexpectedChar, "expected quote for attribute %s", name)
	}
	p.pos++
	valStart := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return ferrors.New(ferrors.UnexpectedEOF, "unterminated attribute value for %s", name)
	}
	attrs[name] = p.src[valStart:p.pos]
	p.pos++ // consume closing quote
	return nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func isTagDelim(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '>' || c == '/'
}

func voidElement(tag string) bool {
	switch tag {
	case "br", "img", "input", "hr", "meta", "link":
		return true
	default:
		return false
	}
}

// Render serializes t back to HTML text, deterministically (attributes
// sorted by name), so two trees that are structurally equal render
// byte-identically regardless of how the original source formatted them —
// the normalization the §8.1 "apply correctness" property assumes.
func Render(t *diff.Tree) string {
	var b strings.Builder
	for _, c := range t.Children(t.Root) {
		renderNode(t, c, &b)
	}
	return b.String()
}

func renderNode(t *diff.Tree, id diff.NodeID, b *strings.Builder) {
	if t.Kind(id) == TextKind {
		b.WriteString(t.Nodes[id].Props["text"])
		return
	}
	tag := t.Kind(id)
	fmt.Fprintf(b, "<%s%s>", tag, renderAttrs(t, id))
	if voidElement(tag) {
		return
	}
	for _, c := range t.Children(id) {
		renderNode(t, c, b)
	}
	fmt.Fprintf(b, "</%s>", tag)
}

func renderAttrs(t *diff.Tree, id diff.NodeID) string {
	props := t.Nodes[id].Props
	if len(props) == 0 {
		return ""
	}
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, " %s=%q", n, props[n])
	}
	return b.String()
}
