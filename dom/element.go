package dom

import (
	"strings"
)

// Element represents an element in the DOM tree.
// Element inherits from Node and provides element-specific properties and methods.
type Element Node

// AsNode returns the underlying Node.
func (e *Element) AsNode() *Node {
	return (*Node)(e)
}

// TagName returns the tag name in uppercase.
func (e *Element) TagName() string {
	return e.AsNode().elementData.tagName
}

// LocalName returns the local name of the element (lowercase for HTML).
func (e *Element) LocalName() string {
	return e.AsNode().elementData.localName
}

// Id returns the id attribute value.
func (e *Element) Id() string {
	return e.GetAttribute("id")
}

// SetId sets the id attribute value.
func (e *Element) SetId(id string) {
	e.SetAttribute("id", id)
}

// ParentElement returns the parent Element, or nil at the top of the tree.
func (e *Element) ParentElement() *Element {
	return e.AsNode().ParentElement()
}

// Attributes returns a copy of the element's attributes in insertion order.
func (e *Element) Attributes() []Attr {
	return append([]Attr(nil), e.AsNode().elementData.attributes...)
}

// GetAttribute returns the value of the named attribute, or "" if absent.
func (e *Element) GetAttribute(name string) string {
	value, _ := e.lookupAttribute(name)
	return value
}

// HasAttribute returns true if the element has the named attribute.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.lookupAttribute(name)
	return ok
}

func (e *Element) lookupAttribute(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, attr := range e.AsNode().elementData.attributes {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// SetAttribute sets the value of the named attribute.
// For error-returning version, use SetAttributeWithError.
func (e *Element) SetAttribute(name, value string) {
	_ = e.SetAttributeWithError(name, value)
}

// SetAttributeWithError sets the value of the named attribute.
// Returns an InvalidCharacterError if name is not a valid attribute name.
func (e *Element) SetAttributeWithError(name, value string) error {
	if !isValidName(name) {
		return ErrInvalidCharacter("The string contains invalid characters.")
	}
	e.setAttribute(name, value)
	return nil
}

func (e *Element) setAttribute(name, value string) {
	name = strings.ToLower(name)
	data := e.AsNode().elementData
	for i := range data.attributes {
		if data.attributes[i].Name == name {
			data.attributes[i].Value = value
			return
		}
	}
	data.attributes = append(data.attributes, Attr{Name: name, Value: value})
}

// RemoveAttribute removes the named attribute if present.
func (e *Element) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	data := e.AsNode().elementData
	for i, attr := range data.attributes {
		if attr.Name == name {
			data.attributes = append(data.attributes[:i], data.attributes[i+1:]...)
			return
		}
	}
}

// AppendChild appends child to this element and returns it.
func (e *Element) AppendChild(child *Node) *Node {
	return e.AsNode().AppendChild(child)
}

// TextContent returns the concatenated text of the element's descendants.
func (e *Element) TextContent() string {
	return e.AsNode().TextContent()
}

// isValidName reports whether name is usable as a tag or attribute name:
// non-empty, no whitespace, no markup delimiters.
func isValidName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, " \t\n\f\r/>\"'=<")
}
