// SPDX-License-Identifier: MPL-2.0

package bundle

type (
	// Asset is one allow-listed top-level name. A missing optional asset is
	// skipped; a missing required asset fails the assembly.
	Asset struct {
		Name     string
		Required bool
	}

	// AssetSet is the ordered allow-list copied into staging.
	AssetSet []Asset
)

// DefaultAssets is the conventional allow-list for a bundled VS Code
// extension.
func DefaultAssets() AssetSet {
	return AssetSet{
		{Name: "dist"},
		{Name: "README.md"},
		{Name: "README.MD"},
		{Name: "README"},
		{Name: "LICENSE"},
		{Name: "LICENSE.md"},
		{Name: "resources"},
	}
}

// Names returns the asset names in order.
func (s AssetSet) Names() []string {
	names := make([]string, len(s))
	for i, a := range s {
		names[i] = a.Name
	}
	return names
}
