// Package html builds dom documents from markup, using golang.org/x/net/html
// as the underlying parser implementation.
package html

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/chrisuehlinger/eventdelegator/dom"
)

// Parse parses an HTML document from a string.
func Parse(htmlContent string) (*dom.Document, error) {
	return ParseReader(strings.NewReader(htmlContent))
}

// ParseReader parses an HTML document from an io.Reader. The HTML5 parser
// repairs malformed markup, so errors only come from the reader.
func ParseReader(r io.Reader) (*dom.Document, error) {
	netNode, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html document")
	}
	doc := dom.NewDocument()
	for c := netNode.FirstChild; c != nil; c = c.NextSibling {
		if child := convertNode(c, doc); child != nil {
			doc.AppendChild(child)
		}
	}
	return doc, nil
}

// ParseFragment parses markup in the context of an element, returning the
// top-level nodes owned by the context's document. The nodes are not inserted.
func ParseFragment(fragment string, context *dom.Element) ([]*dom.Node, error) {
	tagName := strings.ToLower(context.LocalName())
	contextNode := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tagName)),
		Data:     tagName,
	}
	netNodes, err := html.ParseFragment(strings.NewReader(fragment), contextNode)
	if err != nil {
		return nil, errors.Wrapf(err, "parse html fragment in <%s>", tagName)
	}

	doc := context.AsNode().OwnerDocument()
	nodes := make([]*dom.Node, 0, len(netNodes))
	for _, nn := range netNodes {
		if node := convertNode(nn, doc); node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// convertNode converts a golang.org/x/net/html node and its subtree.
// Doctypes and error nodes have no dom counterpart and yield nil; every
// element is kept, whatever its name.
func convertNode(n *html.Node, doc *dom.Document) *dom.Node {
	var node *dom.Node

	switch n.Type {
	case html.TextNode:
		return doc.CreateTextNode(n.Data)
	case html.CommentNode:
		return doc.CreateComment(n.Data)
	case html.ElementNode:
		attrs := make([]dom.Attr, len(n.Attr))
		for i, attr := range n.Attr {
			attrs[i] = dom.Attr{Name: attr.Key, Value: attr.Val}
		}
		node = doc.CreateParsedElement(n.Data, attrs).AsNode()
	default:
		return nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := convertNode(c, doc); child != nil {
			node.AppendChild(child)
		}
	}
	return node
}
