package build

import (
	"context"

	"github.com/pkg/errors"
)

// LuaRocksCompatBackend covers rock_manifest-less legacy rockspecs whose
// build.type names an external tool this module doesn't implement
// natively (e.g. "builtin" variants with legacy quirks, or an unknown
// third-party build type). Rather than shelling out to a legacy client
// that may not be installed, it fails closed with a message naming the
// declared type so the caller can fall back to a compatible rockspec
// (spec §4.8 Non-goal: "reimplementing every historical build.type").
type LuaRocksCompatBackend struct{}

func (b *LuaRocksCompatBackend) Run(ctx context.Context, rp RunParams) (BuildInfo, error) {
	name := rp.Spec.LuaRocksCompatName
	if name == "" {
		name = "unknown"
	}
	return BuildInfo{}, errors.Errorf("build type %q has no native backend and legacy-compat execution is not supported", name)
}
