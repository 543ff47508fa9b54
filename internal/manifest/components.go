package manifest

import "iter"

// UnnamedComponent is reported when a component has no android:name.
const UnnamedComponent = "<unnamed>"

// ComponentKind is an entry-point category.
type ComponentKind int

const (
	ComponentActivity ComponentKind = iota + 1
	ComponentActivityAlias
	ComponentService
	ComponentReceiver
)

func (k ComponentKind) String() string {
	switch k {
	case ComponentActivity:
		return "activity"
	case ComponentActivityAlias:
		return "activity-alias"
	case ComponentService:
		return "service"
	case ComponentReceiver:
		return "receiver"
	default:
		return "unknown"
	}
}

var componentKinds = map[ElementKind]ComponentKind{
	ElementActivity:      ComponentActivity,
	ElementActivityAlias: ComponentActivityAlias,
	ElementService:       ComponentService,
	ElementReceiver:      ComponentReceiver,
}

// Component is an entry-point declaration as it appears in the document.
type Component struct {
	Kind       ComponentKind
	Identifier string

	// AcceptsExternalTriggers is set when the element has at least one intent-filter child.
	AcceptsExternalTriggers bool

	// Exported holds the raw android:exported value when HasExported is true.
	Exported    string
	HasExported bool
}

// Components yields every activity, activity-alias, service and receiver under root
// in document order, at any depth.
func Components(root *Element) iter.Seq[Component] {
	return func(yield func(Component) bool) {
		walk(root, yield)
	}
}

func walk(el *Element, yield func(Component) bool) bool {
	if el == nil {
		return true
	}

	if kind, ok := componentKinds[el.Kind]; ok {
		if !yield(newComponent(kind, el)) {
			return false
		}
	}

	for _, child := range el.Children {
		if !walk(child, yield) {
			return false
		}
	}
	return true
}

func newComponent(kind ComponentKind, el *Element) Component {
	c := Component{Kind: kind, Identifier: UnnamedComponent}
	if name, ok := el.AndroidAttr("name"); ok && name != "" {
		c.Identifier = name
	}
	c.Exported, c.HasExported = el.AndroidAttr("exported")

	for _, child := range el.Children {
		if child.Kind == ElementIntentFilter {
			c.AcceptsExternalTriggers = true
			break
		}
	}
	return c
}
