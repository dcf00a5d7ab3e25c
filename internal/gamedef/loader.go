package gamedef

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/ctxlog"
	"github.com/vk/assetforge/internal/fsutil"
	"github.com/vk/assetforge/internal/vfs"
)

// fileRoot is the shape of one definition file. Any file may carry any mix
// of blocks; everything is merged into one model.
type fileRoot struct {
	Games    []*gameBlock    `hcl:"game,block"`
	Profiles []*profileBlock `hcl:"profile,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type gameBlock struct {
	Name        string             `hcl:"name,label"`
	SearchPaths []*searchPathBlock `hcl:"search_path,block"`
}

type searchPathBlock struct {
	Dir     *string `hcl:"dir,optional"`
	Archive *string `hcl:"archive,optional"`
}

// profileBlock keeps its attribute set open: profiles carry whatever options
// the importers understand, and the loader only stringifies them.
type profileBlock struct {
	Name    string   `hcl:"name,label"`
	Options hcl.Body `hcl:",remain"`
}

// Loader reads game definition files.
type Loader struct{}

// NewLoader creates a game definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under the given paths and merges the declared
// games and profiles. Duplicate game or profile names across files are
// configuration errors.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Definitions, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Game definition loader started.", "path_count", len(paths))

	defs := &Definitions{
		Games: make(map[string]*Game),
		Profiles: map[string]assetid.Options{
			// The default profile always exists, with no options set.
			"default": {},
		},
	}

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered definition files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", file, diags)
		}

		for _, gb := range root.Games {
			game, err := translateGame(gb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if _, dup := defs.Games[game.Name]; dup {
				return nil, fmt.Errorf("%s: game %q defined twice", file, game.Name)
			}
			defs.Games[game.Name] = game
		}
		for _, pb := range root.Profiles {
			opts, err := translateProfile(pb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if _, dup := defs.Profiles[pb.Name]; dup && pb.Name != "default" {
				return nil, fmt.Errorf("%s: profile %q defined twice", file, pb.Name)
			}
			defs.Profiles[pb.Name] = opts
		}
	}

	logger.Debug("Game definitions loaded.", "games", len(defs.Games), "profiles", len(defs.Profiles))
	return defs, nil
}

func translateGame(gb *gameBlock) (*Game, error) {
	if len(gb.SearchPaths) == 0 {
		return nil, fmt.Errorf("game %q declares no search paths", gb.Name)
	}

	fs := vfs.FileSystem{Name: gb.Name}
	for _, sp := range gb.SearchPaths {
		switch {
		case sp.Dir != nil && sp.Archive != nil:
			return nil, fmt.Errorf("game %q: search_path sets both dir and archive", gb.Name)
		case sp.Dir != nil:
			fs.SearchPaths = append(fs.SearchPaths, vfs.SearchPath{Dir: *sp.Dir})
		case sp.Archive != nil:
			fs.SearchPaths = append(fs.SearchPaths, vfs.SearchPath{Archive: *sp.Archive})
		default:
			return nil, fmt.Errorf("game %q: search_path sets neither dir nor archive", gb.Name)
		}
	}
	return &Game{Name: gb.Name, FileSystem: fs}, nil
}

// translateProfile stringifies the profile's attributes into import options.
// Only primitive values make sense as options.
func translateProfile(pb *profileBlock) (assetid.Options, error) {
	attrs, diags := pb.Options.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("profile %q: %w", pb.Name, diags)
	}

	opts := make(assetid.Options, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("profile %q, option %q: %w", pb.Name, name, diags)
		}
		str, err := stringifyOption(val)
		if err != nil {
			return nil, fmt.Errorf("profile %q, option %q: %w", pb.Name, name, err)
		}
		opts[name] = str
	}
	return opts, nil
}

func stringifyOption(val cty.Value) (string, error) {
	if val.IsNull() || !val.IsKnown() {
		return "", fmt.Errorf("option value must be a known, non-null primitive")
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		return val.AsBigFloat().Text('f', -1), nil
	case cty.Bool:
		if val.True() {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("unsupported option type %s", val.Type().FriendlyName())
	}
}
