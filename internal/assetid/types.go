// Package assetid defines the canonical identity of an import request.
//
// Two requests that normalize to the same Key refer to the same asset: it is
// imported once and the result is shared by every requester. The key folds in
// the asset kind, the normalized game path and a fingerprint of the import
// options that are relevant for that kind, so that e.g. the same texture
// requested with two different target formats yields two independent nodes.
package assetid

import "fmt"

// Kind identifies the importer responsible for an asset.
type Kind string

// The asset kinds known to the engine. The graph itself is polymorphic over
// kinds; these constants exist so callers and importers agree on the names.
const (
	KindMap      Kind = "map"
	KindModel    Kind = "model"
	KindMaterial Kind = "material"
	KindTexture  Kind = "texture"
)

// Key is the normalized, comparable identity of one asset. It is a value
// type and is used directly as a map key throughout the graph.
type Key struct {
	Kind        Kind
	Path        string
	Fingerprint uint64
}

// String renders the key in the form "kind:path#fingerprint" for logs and
// error messages.
func (k Key) String() string {
	if k.Fingerprint == 0 {
		return fmt.Sprintf("%s:%s", k.Kind, k.Path)
	}
	return fmt.Sprintf("%s:%s#%x", k.Kind, k.Path, k.Fingerprint)
}

// Request asks the engine to import one asset. RequestedBy is nil for root
// requests submitted by the caller and set to the parent's key for requests
// discovered by a running importer. Requests are transient: they are folded
// into the graph and not retained.
type Request struct {
	Key         Key
	RequestedBy *Key
}

// RootRequest builds a Request with no parent.
func RootRequest(key Key) Request {
	return Request{Key: key}
}

// ChildRequest builds a Request attributed to the given parent.
func ChildRequest(key Key, parent Key) Request {
	return Request{Key: key, RequestedBy: &parent}
}
