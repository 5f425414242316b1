package dom

import (
	"strings"
)

// Document represents the entire HTML document.
type Document Node

// NewDocument creates a new empty HTML Document.
func NewDocument() *Document {
	node := newNode(DocumentNode, "#document", nil)
	node.documentData = &documentData{
		contentType: "text/html",
		url:         "about:blank",
	}
	doc := (*Document)(node)
	node.ownerDoc = doc
	return doc
}

// AsNode returns the underlying Node.
func (d *Document) AsNode() *Node {
	return (*Node)(d)
}

// ContentType returns the document's MIME type.
func (d *Document) ContentType() string {
	return d.AsNode().documentData.contentType
}

// URL returns the document's URL.
func (d *Document) URL() string {
	return d.AsNode().documentData.url
}

// SetURL sets the document's URL.
func (d *Document) SetURL(url string) {
	d.AsNode().documentData.url = url
}

// DocumentElement returns the root element, usually <html>.
func (d *Document) DocumentElement() *Element {
	for child := d.firstChild; child != nil; child = child.nextSibling {
		if child.nodeType == ElementNode {
			return (*Element)(child)
		}
	}
	return nil
}

// Head returns the <head> child of the document element, if any.
func (d *Document) Head() *Element {
	return d.documentElementChild("head")
}

// Body returns the <body> child of the document element, if any.
func (d *Document) Body() *Element {
	return d.documentElementChild("body")
}

func (d *Document) documentElementChild(localName string) *Element {
	root := d.DocumentElement()
	if root == nil {
		return nil
	}
	for child := root.firstChild; child != nil; child = child.nextSibling {
		if child.nodeType == ElementNode && (*Element)(child).LocalName() == localName {
			return (*Element)(child)
		}
	}
	return nil
}

// CreateElement creates a new element with the given tag name.
// This method ignores errors. Use CreateElementWithError for proper error handling.
func (d *Document) CreateElement(tagName string) *Element {
	el, _ := d.CreateElementWithError(tagName)
	return el
}

// CreateElementWithError creates a new element with the given tag name.
// Returns an InvalidCharacterError if the tag name is not valid.
func (d *Document) CreateElementWithError(tagName string) (*Element, error) {
	if !isValidName(tagName) {
		return nil, ErrInvalidCharacter("The string contains invalid characters.")
	}
	return d.newElement(tagName), nil
}

// CreateParsedElement creates an element as the HTML parser produced it.
// Tag and attribute names come from the tokenizer and are not validated, so
// malformed markup such as <x"y> still yields an element.
func (d *Document) CreateParsedElement(tagName string, attrs []Attr) *Element {
	el := d.newElement(tagName)
	for _, attr := range attrs {
		el.setAttribute(attr.Name, attr.Value)
	}
	return el
}

func (d *Document) newElement(tagName string) *Element {
	upper := strings.ToUpper(tagName)
	node := newNode(ElementNode, upper, d)
	node.elementData = &elementData{
		localName: strings.ToLower(tagName),
		tagName:   upper,
	}
	return (*Element)(node)
}

// CreateTextNode creates a new Text node with the given data.
func (d *Document) CreateTextNode(data string) *Node {
	node := newNode(TextNode, "#text", d)
	node.nodeValue = &data
	return node
}

// CreateComment creates a new Comment node with the given data.
func (d *Document) CreateComment(data string) *Node {
	node := newNode(CommentNode, "#comment", d)
	node.nodeValue = &data
	return node
}

// GetElementById returns the first element in tree order with the given id.
// Returns nil for the empty id.
func (d *Document) GetElementById(id string) *Element {
	if id == "" {
		return nil
	}
	return findElementById(d.AsNode(), id)
}

func findElementById(node *Node, id string) *Element {
	for child := node.firstChild; child != nil; child = child.nextSibling {
		if child.nodeType != ElementNode {
			continue
		}
		el := (*Element)(child)
		if el.Id() == id {
			return el
		}
		if result := findElementById(child, id); result != nil {
			return result
		}
	}
	return nil
}

// AppendChild appends child to the document and returns it.
func (d *Document) AppendChild(child *Node) *Node {
	return d.AsNode().AppendChild(child)
}

// AddEventListener registers a listener on the document node.
func (d *Document) AddEventListener(eventType string, listener EventListenerFunc, opts ListenerOptions) ListenerID {
	return d.AsNode().AddEventListener(eventType, listener, opts)
}

// RemoveEventListenerByID removes a document listener by id.
func (d *Document) RemoveEventListenerByID(eventType string, id ListenerID) bool {
	return d.AsNode().RemoveEventListenerByID(eventType, id)
}
