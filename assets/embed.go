package assets

import "embed"

// FactsFS holds one YAML fact pack per content theme under facts/.
//
//go:embed facts/*.yaml
var FactsFS embed.FS
