package out

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
)

// HTMLRenderer serializes the display tree. Text and attribute values are
// escaped by the html package.
type HTMLRenderer struct{}

func NewHTMLRenderer() trialout.MarkupRenderer {
	return HTMLRenderer{}
}

func (HTMLRenderer) Render(root *domain.Element) (string, error) {
	if root == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, toNode(root)); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func toNode(el *domain.Element) *html.Node {
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     el.Tag,
		DataAtom: atom.Lookup([]byte(el.Tag)),
	}
	if el.ID != "" {
		node.Attr = append(node.Attr, html.Attribute{Key: "id", Val: el.ID})
	}
	if len(el.Classes) > 0 {
		node.Attr = append(node.Attr, html.Attribute{Key: "class", Val: strings.Join(el.Classes, " ")})
	}
	for _, attr := range el.Attrs {
		node.Attr = append(node.Attr, html.Attribute{Key: attr.Name, Val: attr.Value})
	}
	if style := el.StyleText(); style != "" {
		node.Attr = append(node.Attr, html.Attribute{Key: "style", Val: style})
	}
	if el.Text != "" {
		node.AppendChild(&html.Node{Type: html.TextNode, Data: el.Text})
	}
	for _, child := range el.Children {
		node.AppendChild(toNode(child))
	}
	return node
}
