package main

import (
	"strings"

	"github.com/luapm/luapm/internal/version"
)

// parsePackageReq splits a CLI argument like "lua-cjson", "lua-cjson >= 2.0",
// or "lua-cjson==1.0.0" into a version.PackageReq. A bare name means "any
// version" (spec §3 "absent requirement means 'any'").
func parsePackageReq(arg string) (version.PackageReq, error) {
	name, reqText, hasReq := splitNameReq(arg)

	pname, err := version.NewPackageName(name)
	if err != nil {
		return version.PackageReq{}, err
	}

	if !hasReq {
		return version.PackageReq{Name: pname}, nil
	}

	req, err := version.ParseRequirement(reqText)
	if err != nil {
		return version.PackageReq{}, err
	}
	return version.PackageReq{Name: pname, Req: req}, nil
}

func splitNameReq(arg string) (name, req string, hasReq bool) {
	arg = strings.TrimSpace(arg)
	for _, op := range []string{"==", ">=", "<=", "~>", "=", ">", "<"} {
		if idx := strings.Index(arg, op); idx > 0 {
			return strings.TrimSpace(arg[:idx]), strings.TrimSpace(arg[idx:]), true
		}
	}
	if idx := strings.IndexByte(arg, ' '); idx > 0 {
		return strings.TrimSpace(arg[:idx]), strings.TrimSpace(arg[idx+1:]), true
	}
	return arg, "", false
}
