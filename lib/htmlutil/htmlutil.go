package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PageText parses a document and returns its visible text with
// whitespace collapsed. Used to log what an upstream page actually
// says when it does not have the shape the caller expected.
func PageText(contents []byte) string {
	doc, err := html.Parse(bytes.NewBuffer(contents))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(GetText(doc)), " ")
}

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Form is the first <form> of an html document along with the
// values of its named inputs.
type Form struct {
	Action string
	Method string
	Inputs map[string]string
}

// Input returns the value of a named input, or "" if absent.
func (f Form) Input(name string) string {
	return f.Inputs[name]
}

// FindForm locates the first <form> element in the document and
// reads its action, method and named input values. The second
// return value is false when the document contains no form.
func FindForm(contents []byte) (Form, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(contents))
	if err != nil {
		return Form{}, false
	}

	form := doc.Find("form").First()
	if len(form.Nodes) == 0 {
		return Form{}, false
	}

	inputs := map[string]string{}
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		inputs[name] = input.AttrOr("value", "")
	})

	return Form{
		Action: form.AttrOr("action", ""),
		Method: strings.ToUpper(form.AttrOr("method", "")),
		Inputs: inputs,
	}, true
}

// FindPostForm is FindForm restricted to forms that submit via POST.
// A form with any other method is reported as not found, callers
// treat that as the upstream changing its page contract.
func FindPostForm(contents []byte) (Form, bool) {
	form, ok := FindForm(contents)
	if !ok {
		return Form{}, false
	}
	if form.Method != "POST" {
		return Form{}, false
	}
	return form, true
}

// HasInput reports whether the document contains an <input> with
// the given (case-sensitive) name anywhere, not just inside a form.
func HasInput(contents []byte, name string) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(contents))
	if err != nil {
		return false
	}
	return len(doc.Find("input[name="+name+"]").Nodes) > 0
}
