package dom

// Attr is a single name/value attribute of an Element.
type Attr struct {
	Name  string
	Value string
}
