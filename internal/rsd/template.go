package rsd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/beevik/etree"

	"github.com/kyleking/xu-rsd-gen/internal/errors"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

const (
	// APINamespace is the namespace of the api: elements of an RSD script
	APINamespace = "http://apiscript.com/ns?v1"
	// XSNamespace is the XML Schema namespace used for column types
	XSNamespace = "http://www.w3.org/2001/XMLSchema"

	// Used in error messages; lookups match the namespace URI, not the prefix
	uriSetPath = "//api:set[@attr='URI']"
	infoPath   = "//api:info"

	defaultIndent = 2
)

// Template is a parsed-on-demand RSD template. Every Transform starts from
// the pristine template bytes so documents never share state.
type Template struct {
	path   string
	data   []byte
	indent int
	logger *logging.Logger
}

// LoadTemplate reads the template at path and checks that it is well-formed XML
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to read template %s", path).
			WithSuggestion("Set XU_RSD_TEMPLATE or pass --template with the path to an RSD template")
	}

	t := NewTemplate(data)
	t.path = path

	if _, err := t.parse(); err != nil {
		return nil, err
	}

	return t, nil
}

// NewTemplate creates a template from raw XML
func NewTemplate(data []byte) *Template {
	return &Template{
		path:   "<memory>",
		data:   data,
		indent: defaultIndent,
		logger: logging.Discard(),
	}
}

// WithLogger sets the logger used for non-fatal diagnostics
func (t *Template) WithLogger(logger *logging.Logger) *Template {
	if logger != nil {
		t.logger = logger
	}

	return t
}

// Path returns where the template was loaded from
func (t *Template) Path() string {
	return t.path
}

func (t *Template) parse() (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(t.data); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeTemplate, "failed to parse template %s", t.path)
	}

	if doc.Root() == nil {
		return nil, errors.Newf(errors.ErrTypeTemplate, "template %s has no root element", t.path)
	}

	return doc, nil
}

// Transform builds the RSD document for one extraction: the URI setting is
// replaced with sourceURL, the api:info node is rebuilt from the extraction
// and one attr child is appended per column in input order.
func (t *Template) Transform(extraction xu.Extraction, columns []xu.Column, sourceURL string) (*etree.Document, error) {
	doc, err := t.parse()
	if err != nil {
		return nil, err
	}

	uriSet := findAPIElement(doc.Root(), "set", func(e *etree.Element) bool {
		return e.SelectAttrValue("attr", "") == "URI"
	})
	if uriSet == nil {
		return nil, errors.NewTemplateStructureError(uriSetPath)
	}

	uriSet.CreateAttr("value", sourceURL)

	info := findAPIElement(doc.Root(), "info", nil)
	if info == nil {
		return nil, errors.NewTemplateStructureError(infoPath)
	}

	clearElement(info)
	info.CreateAttr("title", extraction.Name)
	info.CreateAttr("desc", fmt.Sprintf("Type: %s, Source: %s", extraction.Type, extraction.Source))
	info.CreateAttr("xmlns:other", APINamespace)

	for _, column := range columns {
		appendColumn(info, column)
	}

	doc.Root().CreateAttr("xmlns:xs", XSNamespace)

	t.indentDocument(doc)

	return doc, nil
}

// findAPIElement returns the first element in document order, starting at
// root, named tag in the api namespace that satisfies match (nil matches all).
// The prefix bound to the namespace does not matter.
func findAPIElement(root *etree.Element, tag string, match func(*etree.Element) bool) *etree.Element {
	if root == nil {
		return nil
	}

	if root.Tag == tag && root.NamespaceURI() == APINamespace && (match == nil || match(root)) {
		return root
	}

	for _, child := range root.ChildElements() {
		if found := findAPIElement(child, tag, match); found != nil {
			return found
		}
	}

	return nil
}

func appendColumn(info *etree.Element, column xu.Column) {
	attr := info.CreateElement("attr")
	attr.CreateAttr("name", column.Name)
	attr.CreateAttr("xs:type", MapType(column.Type))
	attr.CreateAttr("key", strconv.FormatBool(column.IsPrimaryKey))
	attr.CreateAttr("other:xPath", "/json/"+column.Name)
	attr.CreateAttr("readonly", "true")

	if column.Length != nil {
		attr.CreateAttr("columnsize", strconv.Itoa(*column.Length))
	}

	if column.DecimalsCount != nil {
		attr.CreateAttr("decimaldigits", strconv.Itoa(*column.DecimalsCount))
	}

	if column.Description != nil {
		attr.CreateAttr("description", *column.Description)
	}
}

// clearElement drops all attributes and child tokens of e
func clearElement(e *etree.Element) {
	e.Attr = nil
	for len(e.Child) > 0 {
		e.RemoveChildAt(0)
	}
}

// indentDocument pretty-prints doc. Indentation is cosmetic, so a failure is
// logged and the document is written as-is.
func (t *Template) indentDocument(doc *etree.Document) {
	if t.indent <= 0 {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.WithField("template", t.path).Warnf("skipping indentation: %v", r)
		}
	}()

	doc.Indent(t.indent)
}
