package manifest

// knownTools are host-installed programs a component may depend on. A
// dependency naming one of these is external: it is never resolved against
// the catalog, only probed for on the host.
var knownTools = map[string]bool{
	"git":        true,
	"gh":         true,
	"node":       true,
	"npm":        true,
	"npx":        true,
	"yarn":       true,
	"pnpm":       true,
	"bun":        true,
	"typescript": true,
	"tsc":        true,
	"eslint":     true,
	"biome":      true,
	"prettier":   true,
	"jest":       true,
	"vitest":     true,
	"mocha":      true,
	"python":     true,
	"pytest":     true,
	"go":         true,
	"docker":     true,
	"rg":         true,
	"jq":         true,
}

// toolBinaries maps tool ids onto the executable that proves them present.
var toolBinaries = map[string]string{
	"typescript": "tsc",
	"python":     "python3",
}

// IsKnownTool reports whether id names a known external tool.
func IsKnownTool(id string) bool {
	return knownTools[id]
}

// ToolBinary returns the executable name probed for a tool id.
func ToolBinary(id string) string {
	if bin, ok := toolBinaries[id]; ok {
		return bin
	}
	return id
}
