// Package manifest parses merged Android manifests into a typed element tree
// and extracts the permission requests and entry-point components from it.
package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/net/html/charset"
)

// AndroidNamespace is the namespace URI bound to the android: attribute prefix.
const AndroidNamespace = "http://schemas.android.com/apk/res/android"

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// ElementKind is the closed set of manifest elements the audit understands.
// Everything else is ElementOther and is only walked through.
type ElementKind int

const (
	ElementOther ElementKind = iota
	ElementManifest
	ElementApplication
	ElementActivity
	ElementActivityAlias
	ElementService
	ElementReceiver
	ElementIntentFilter
	ElementUsesPermission
	ElementUsesPermissionSDK23
)

var elementKinds = map[string]ElementKind{
	"manifest":               ElementManifest,
	"application":            ElementApplication,
	"activity":               ElementActivity,
	"activity-alias":         ElementActivityAlias,
	"service":                ElementService,
	"receiver":               ElementReceiver,
	"intent-filter":          ElementIntentFilter,
	"uses-permission":        ElementUsesPermission,
	"uses-permission-sdk-23": ElementUsesPermissionSDK23,
}

// KindOf classifies an element name. Namespaced elements are never manifest elements.
func KindOf(name xml.Name) ElementKind {
	if name.Space != "" {
		return ElementOther
	}
	if kind, ok := elementKinds[name.Local]; ok {
		return kind
	}
	return ElementOther
}

// Element is one node of the parsed document.
type Element struct {
	Kind     ElementKind
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Element
}

// Attr returns the value of the attribute in the given namespace and whether it is present.
func (e *Element) Attr(space, local string) (string, bool) {
	for _, attr := range e.Attrs {
		if attr.Name.Space == space && attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}

// AndroidAttr looks up an android: attribute.
func (e *Element) AndroidAttr(local string) (string, bool) {
	return e.Attr(AndroidNamespace, local)
}

// Document is a parsed manifest. It is never modified after Load returns.
type Document struct {
	Path string
	Root *Element
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ParseError{Path: path, Err: errors.New("path is a directory")}
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	root, err := parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return &Document{Path: path, Root: root}, nil
}

// Parse builds a document from an in-memory reader. The path is only used in errors.
func Parse(path string, r io.Reader) (*Document, error) {
	root, err := parse(r)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &Document{Path: path, Root: root}, nil
}

func parse(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var root *Element
	var stack []*Element
	// scopes[i] holds the namespace URIs bound while stack[i] is open.
	var scopes []map[string]bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var parentScope map[string]bool
			if len(scopes) > 0 {
				parentScope = scopes[len(scopes)-1]
			}
			scope := bindNamespaces(parentScope, t.Attr)
			if err := checkBound(scope, t); err != nil {
				return nil, err
			}

			el := &Element{
				Kind:  KindOf(t.Name),
				Name:  t.Name,
				Attrs: append([]xml.Attr(nil), t.Attr...),
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("unexpected second root element <%s>", t.Name.Local)
				}
				if t.Name.Space != "" {
					return nil, fmt.Errorf("root element <%s> is in namespace %q; manifest elements must be unqualified", t.Name.Local, t.Name.Space)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
			scopes = append(scopes, scope)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]
		case xml.CharData:
			if len(stack) == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("text outside of root element")
			}
		}
	}

	if root == nil {
		return nil, errors.New("document has no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name.Local)
	}
	return root, nil
}

// bindNamespaces extends the parent scope with the xmlns declarations of one element.
func bindNamespaces(parent map[string]bool, attrs []xml.Attr) map[string]bool {
	var scope map[string]bool
	for _, attr := range attrs {
		isDecl := attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns")
		if !isDecl || attr.Value == "" {
			continue
		}
		if scope == nil {
			scope = make(map[string]bool, len(parent)+1)
			for uri := range parent {
				scope[uri] = true
			}
		}
		scope[attr.Value] = true
	}
	if scope == nil {
		return parent
	}
	return scope
}

// checkBound rejects prefixes the decoder could not resolve. encoding/xml
// leaves an unbound prefix in Name.Space instead of failing.
func checkBound(scope map[string]bool, t xml.StartElement) error {
	if t.Name.Space != "" && !scope[t.Name.Space] {
		return fmt.Errorf("unbound namespace prefix %q on <%s>", t.Name.Space, t.Name.Local)
	}
	for _, attr := range t.Attr {
		switch {
		case attr.Name.Space == "", attr.Name.Space == "xmlns", attr.Name.Space == xmlNamespace:
			continue
		case !scope[attr.Name.Space]:
			return fmt.Errorf("unbound namespace prefix %q on attribute %s of <%s>", attr.Name.Space, attr.Name.Local, t.Name.Local)
		}
	}
	return nil
}
