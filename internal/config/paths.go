package config

import (
	"fmt"

	"github.com/boddenberg/atendimento-webhook-go/internal/normalize"

	"github.com/BurntSushi/toml"
)

// ProviderPaths is the TOML file that prepends candidate paths per field:
//
//	[engagement]
//	name = ["lead.full_name"]
//
//	[visit]
//	origin_url = ["location.href"]
type ProviderPaths struct {
	Engagement normalize.EngagementPaths `toml:"engagement"`
	Visit      normalize.VisitPaths      `toml:"visit"`
}

// LoadProviderPaths decodes path and merges it ahead of the built-in
// candidates. An empty path returns the defaults. Unknown keys are an
// error so a typo does not silently fall back.
func LoadProviderPaths(path string) (normalize.EngagementPaths, normalize.VisitPaths, error) {
	engagement := normalize.DefaultEngagementPaths()
	visit := normalize.DefaultVisitPaths()
	if path == "" {
		return engagement, visit, nil
	}

	var extra ProviderPaths
	meta, err := toml.DecodeFile(path, &extra)
	if err != nil {
		return engagement, visit, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return engagement, visit, fmt.Errorf("decode %s: unknown keys %v", path, undecoded)
	}

	return engagement.Merge(extra.Engagement), visit.Merge(extra.Visit), nil
}
