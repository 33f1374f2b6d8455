// Package version implements the package name, version, and version
// requirement model: semver versions and "development" tags (dev, scm,
// git), and the requirement grammar used to constrain them.
package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// devTags is the closed set of non-semver "floating build" tags.
var devTags = map[string]bool{
	"dev": true,
	"scm": true,
	"git": true,
}

// nameRegex is a conservative, lowercase word charset for package names.
var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// PackageName is a case-insensitive package identifier. Use NewPackageName
// to construct one; the zero value is invalid.
type PackageName struct {
	lower string
}

// NewPackageName validates and normalizes a raw package name.
func NewPackageName(raw string) (PackageName, error) {
	if raw == "" {
		return PackageName{}, errors.New("package name must not be empty")
	}
	lower := strings.ToLower(raw)
	if !nameRegex.MatchString(lower) {
		return PackageName{}, errors.Errorf("invalid package name %q", raw)
	}
	return PackageName{lower: lower}, nil
}

func (n PackageName) String() string { return n.lower }

// Equal compares two names case-insensitively (they are already
// normalized to lowercase on construction).
func (n PackageName) Equal(o PackageName) bool { return n.lower == o.lower }

// PackageVersion is either a semver triple or one of the development tags.
type PackageVersion struct {
	sv     *semver.Version // nil if dev
	devTag string          // "" if semver
}

// ParseError is returned for any input that cannot be parsed as a version
// or requirement.
type ParseError struct {
	Input string
	Kind  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s %q: %v", e.Kind, e.Input, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ParseVersion parses a version string. A bare semver core (e.g. "1.4") is
// normalized by appending ".0" segments until at least two dots are
// present, matching the legacy rockspec convention that "1" == "1.0.0" and
// "1.4" == "1.4.0". Development tags are matched case-sensitively against
// the closed set {dev, scm, git}.
func ParseVersion(raw string) (PackageVersion, error) {
	trimmed := strings.TrimSpace(raw)
	if devTags[trimmed] {
		return PackageVersion{devTag: trimmed}, nil
	}

	normalized := normalizeSemverCore(trimmed)
	sv, err := semver.NewVersion(normalized)
	if err != nil {
		return PackageVersion{}, &ParseError{Input: raw, Kind: "version", Cause: err}
	}
	return PackageVersion{sv: sv}, nil
}

// normalizeSemverCore appends ".0" until the string has at least two dots
// in its numeric core. Idempotent: normalizing an already-complete triple
// is a no-op.
func normalizeSemverCore(s string) string {
	core := s
	rest := ""
	for i, r := range s {
		if r == '-' || r == '+' {
			core, rest = s[:i], s[i:]
			break
		}
	}
	dots := strings.Count(core, ".")
	for dots < 2 {
		core += ".0"
		dots++
	}
	return core + rest
}

func (v PackageVersion) IsDev() bool { return v.devTag != "" }

func (v PackageVersion) String() string {
	if v.IsDev() {
		return v.devTag
	}
	return v.sv.String()
}

// Compare provides a total order: semver < semver by semver rules; any
// semver version is less than any dev version; dev versions compare
// lexically by tag.
func (v PackageVersion) Compare(o PackageVersion) int {
	switch {
	case !v.IsDev() && !o.IsDev():
		return v.sv.Compare(o.sv)
	case v.IsDev() && o.IsDev():
		return strings.Compare(v.devTag, o.devTag)
	case v.IsDev() && !o.IsDev():
		return 1
	default:
		return -1
	}
}

func (v PackageVersion) LessThan(o PackageVersion) bool { return v.Compare(o) < 0 }
func (v PackageVersion) Equal(o PackageVersion) bool    { return v.Compare(o) == 0 }

// PackageVersionReq constrains which PackageVersions are admissible.
type PackageVersionReq struct {
	semverConstraint semver.Constraint // nil if dev requirement
	devTag           string            // "" if semver requirement
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&equals;", "=",
)

// ParseRequirement decodes HTML entities then parses a version
// requirement. A leading "==" is normalized to "=". The pessimistic "~>"
// operator is expanded to ">= v, < next-segment(v)+1" and rejects
// development-version operands (see DESIGN.md Open Questions).
func ParseRequirement(raw string) (PackageVersionReq, error) {
	decoded := entityReplacer.Replace(raw)
	trimmed := strings.TrimSpace(decoded)

	if trimmed == "" {
		return PackageVersionReq{}, nil // absent requirement: matches any
	}

	if devTags[strings.TrimSpace(strings.TrimPrefix(trimmed, "=="))] ||
		devTags[strings.TrimSpace(strings.TrimPrefix(trimmed, "="))] ||
		devTags[trimmed] {
		tag := strings.TrimSpace(strings.TrimLeft(trimmed, "=~<> "))
		return PackageVersionReq{devTag: tag}, nil
	}

	if strings.HasPrefix(trimmed, "~>") {
		return parsePessimistic(trimmed)
	}

	normalized := strings.Replace(trimmed, "==", "=", 1)
	c, err := semver.NewConstraint(normalized)
	if err != nil {
		return PackageVersionReq{}, &ParseError{Input: raw, Kind: "requirement", Cause: err}
	}
	return PackageVersionReq{semverConstraint: c}, nil
}

func parsePessimistic(trimmed string) (PackageVersionReq, error) {
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, "~>"))
	dots := strings.Count(body, ".")
	normalizedCore := normalizeSemverCore(body)
	v, err := semver.NewVersion(normalizedCore)
	if err != nil {
		return PackageVersionReq{}, &ParseError{Input: trimmed, Kind: "requirement", Cause: err}
	}

	// The segment bumped by the pessimistic operator depends on how many
	// dots the caller actually wrote, not on the normalized triple: "~> 1"
	// bumps major, "~> 1.4" bumps minor, "~> 1.4.3" (or deeper) bumps patch.
	var upper string
	switch {
	case dots == 0:
		upper = fmt.Sprintf("%d.0.0", v.Major()+1)
	case dots == 1:
		upper = fmt.Sprintf("%d.%d.0", v.Major(), v.Minor()+1)
	default:
		upper = fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()+1)
	}
	lower := v.String()
	expanded := fmt.Sprintf(">= %s, < %s", lower, upper)
	c, err := semver.NewConstraint(expanded)
	if err != nil {
		return PackageVersionReq{}, &ParseError{Input: trimmed, Kind: "requirement", Cause: err}
	}
	return PackageVersionReq{semverConstraint: c}, nil
}

// Matches reports whether v satisfies the requirement. Per spec §3, any
// semver requirement matches any development version (to allow floating
// builds against a pinned release constraint).
func (r PackageVersionReq) Matches(v PackageVersion) bool {
	if r.semverConstraint == nil && r.devTag == "" {
		return true // absent requirement
	}
	if r.devTag != "" {
		return v.IsDev() && v.devTag == r.devTag
	}
	if v.IsDev() {
		return true
	}
	return r.semverConstraint.Matches(v.sv) == nil
}

func (r PackageVersionReq) String() string {
	if r.devTag != "" {
		return r.devTag
	}
	if r.semverConstraint == nil {
		return ""
	}
	return fmt.Sprintf("%v", r.semverConstraint)
}

// PackageReq pairs a package name with an optional version requirement.
type PackageReq struct {
	Name PackageName
	Req  PackageVersionReq
}

// PackageSpec is a concrete, resolved package identity.
type PackageSpec struct {
	Name    PackageName
	Version PackageVersion
}

func (s PackageSpec) String() string {
	return fmt.Sprintf("%s %s", s.Name, s.Version)
}

func (s PackageSpec) Satisfies(r PackageReq) bool {
	return s.Name.Equal(r.Name) && r.Req.Matches(s.Version)
}
