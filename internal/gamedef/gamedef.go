// Package gamedef loads game definitions and import profiles from HCL
// configuration files. A game definition names the search paths of one
// game's content; a profile is a named bundle of import options whose
// relevant subset ends up fingerprinted into asset keys.
package gamedef

import (
	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/vfs"
)

// Game is one declared game and its content layout.
type Game struct {
	Name       string
	FileSystem vfs.FileSystem
}

// Definitions is the merged result of loading every definition file.
type Definitions struct {
	Games    map[string]*Game
	Profiles map[string]assetid.Options
}

// Game looks a game up by name.
func (d *Definitions) Game(name string) (*Game, bool) {
	g, ok := d.Games[name]
	return g, ok
}

// Profile looks a profile up by name. The built-in "default" profile (empty
// options) always exists unless a file overrode it.
func (d *Definitions) Profile(name string) (assetid.Options, bool) {
	p, ok := d.Profiles[name]
	return p, ok
}
