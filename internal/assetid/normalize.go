package assetid

import (
	"hash/fnv"
	"path"
	"sort"
	"strings"
)

// Options carries the import options that are relevant for one asset kind.
// Values are the stringified form of whatever the profile or caller chose;
// only the pairs that actually affect the imported result should be included,
// since every pair contributes to the key's fingerprint.
type Options map[string]string

// Normalize produces the canonical Key for a kind, a raw game path and the
// options relevant to that kind. It is pure and total: paths that will never
// resolve still get a key, and the failure surfaces later as an import error.
//
// Path normalization makes separator and case differences collapse onto the
// same key: backslashes become slashes, the path is cleaned of "." and ".."
// segments, leading slashes are stripped and the result is lower-cased.
// Source game paths are case-insensitive, so this loses nothing.
func Normalize(kind Kind, rawPath string, opts Options) Key {
	return Key{
		Kind:        kind,
		Path:        NormalizePath(rawPath),
		Fingerprint: opts.Fingerprint(),
	}
}

// NormalizePath applies the path half of Normalize without building a key.
// Importers use it to canonicalize paths they discover before emitting
// requests, so that log lines and error messages match node identities.
func NormalizePath(rawPath string) string {
	p := strings.ReplaceAll(rawPath, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		p = ""
	}
	return strings.ToLower(p)
}

// Fingerprint digests the option set into a stable, order-independent value.
// An empty or nil option set digests to zero.
func (o Options) Fingerprint() uint64 {
	if len(o) == 0 {
		return 0
	}

	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(o[k]))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Subset returns a copy of the options restricted to the given names.
// Kinds use it to keep irrelevant options out of their keys, so a texture
// format change does not split every brush into a new node.
func (o Options) Subset(names ...string) Options {
	out := make(Options, len(names))
	for _, name := range names {
		if v, ok := o[name]; ok {
			out[name] = v
		}
	}
	return out
}
