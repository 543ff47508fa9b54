package manifest

import (
	"sort"
	"strings"
)

// PermissionSet holds the distinct permission names requested by a manifest.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given names.
func NewPermissionSet(names ...string) PermissionSet {
	set := PermissionSet{}
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether name was declared.
func (p PermissionSet) Contains(name string) bool {
	_, ok := p[name]
	return ok
}

// Sorted returns the permission names in lexical order.
func (p PermissionSet) Sorted() []string {
	out := make([]string, 0, len(p))
	for name := range p {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SkippedEntry describes a permission request that could not be used.
type SkippedEntry struct {
	Tag    string `json:"tag"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// PermissionScan is the result of collecting permission requests.
// Malformed entries are recorded in Skipped and do not fail the scan.
type PermissionScan struct {
	Permissions PermissionSet
	Skipped     []SkippedEntry
}

// CollectPermissions reads the uses-permission elements that are direct children of root.
func CollectPermissions(root *Element) PermissionScan {
	scan := PermissionScan{Permissions: PermissionSet{}}
	if root == nil {
		return scan
	}

	for i, child := range root.Children {
		if child.Kind != ElementUsesPermission && child.Kind != ElementUsesPermissionSDK23 {
			continue
		}

		name, ok := child.AndroidAttr("name")
		if !ok {
			scan.Skipped = append(scan.Skipped, SkippedEntry{Tag: child.Name.Local, Index: i, Reason: "missing android:name"})
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			scan.Skipped = append(scan.Skipped, SkippedEntry{Tag: child.Name.Local, Index: i, Reason: "empty android:name"})
			continue
		}
		scan.Permissions[name] = struct{}{}
	}

	return scan
}
