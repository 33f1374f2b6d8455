// Package resolve implements the single-pass, bounded-fanout dependency
// resolver (spec §4.10): given a set of (build behaviour, requirement)
// pairs, it walks the current-platform dependency graph concurrently,
// deduplicating by LocalPackageId, and returns a topologically consistent
// install set. Concurrency is grounded on golang-dep's own solver (see
// _teacher_reference/solve_bimodal_test.go for the bimodal-graph shape it
// assumes), simplified from backtracking SAT-style search to a
// fail-fast, first-match walk — the rockspec model here has no
// alternative-version backtracking requirement.
package resolve

import (
	"context"
	"sync"

	"github.com/armon/go-radix"
	"github.com/luapm/luapm/internal/build"
	"github.com/luapm/luapm/internal/db"
	"github.com/luapm/luapm/internal/lockfile"
	"github.com/luapm/luapm/internal/rockspec"
	"github.com/luapm/luapm/internal/tree"
	"github.com/luapm/luapm/internal/version"
	"github.com/pkg/errors"
)

// Request is one top-level input: resolve Req under Behaviour.
type Request struct {
	Req       version.PackageReq
	Behaviour build.ForceMode
}

// InstallSpec is one resolved unit of work, ready for the installer.
type InstallSpec struct {
	BuildBehaviour   build.ForceMode
	RockspecDownload string
	Rockspec         *rockspec.Rockspec
	LocalSpec        version.PackageSpec
	Constraint       string // serialized LockConstraint: "" means unconstrained
	Id               lockfile.LocalPackageId
}

// CycleError reports a package name reached twice in the same resolve
// pass under requirements that cannot both be satisfied by one version.
type CycleError struct {
	Name  string
	ReqA  string
	ReqB  string
}

func (e *CycleError) Error() string {
	return "conflicting requirements for " + e.Name + ": " + e.ReqA + " and " + e.ReqB + " cannot both be satisfied"
}

// resolver carries the shared, concurrency-safe state for one Resolve
// call: the target tree (for NoForce short-circuiting), the remote
// database, and the dedup/conflict tracking structures.
type resolver struct {
	database   *db.Database
	tree       *tree.Tree
	luaVersion string

	mu       sync.Mutex
	visited  *radix.Tree          // LocalPackageId -> struct{}
	byName   map[string]string    // package name -> requirement string chosen for it this pass
	results  []InstallSpec
	firstErr error
}

// Resolve walks every request's dependency closure concurrently and
// returns the deduplicated install set. A download error, an
// unsatisfiable requirement, or a naming conflict aborts the whole call;
// partial results are discarded (spec §4.10 "partial successes are not
// committed").
func Resolve(ctx context.Context, requests []Request, database *db.Database, t *tree.Tree, luaVersion string) ([]InstallSpec, error) {
	r := &resolver{
		database:   database,
		tree:       t,
		luaVersion: luaVersion,
		visited:    radix.New(),
		byName:     map[string]string{},
	}

	var wg sync.WaitGroup
	for _, req := range requests {
		wg.Add(1)
		go r.resolveOne(ctx, req, &wg)
	}
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firstErr != nil {
		return nil, r.firstErr
	}
	out := make([]InstallSpec, len(r.results))
	copy(out, r.results)
	return out, nil
}

func (r *resolver) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firstErr == nil {
		r.firstErr = err
	}
}

func (r *resolver) failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstErr != nil
}

func (r *resolver) resolveOne(ctx context.Context, req Request, wg *sync.WaitGroup) {
	defer wg.Done()
	if r.failed() {
		return
	}

	if req.Behaviour == build.NoForce {
		if match, err := r.tree.MatchRocks(req.Req); err == nil && !match.NotFound() {
			return
		}
	}

	spec, idx, err := r.database.Find(req.Req.Name, req.Req.Req, r.luaVersion)
	if err != nil {
		r.fail(errors.Wrapf(err, "resolving %s", req.Req.Name))
		return
	}

	constraint := lockConstraint(req.Req.Req)
	if conflict := r.recordName(req.Req.Name.String(), constraint); conflict != "" {
		r.fail(&CycleError{Name: req.Req.Name.String(), ReqA: conflict, ReqB: constraint})
		return
	}

	id := lockfile.ComputeID(spec.Name, spec.Version, constraint, req.Behaviour == build.Force, lockfile.SourceOrigin{Kind: "luarocks_rockspec", Value: idx.BaseURL})

	if !r.markVisited(id) {
		return // already resolved by another branch of the fanout
	}

	rockspecText, err := idx.FetchRockspec(spec.Name, spec.Version)
	if err != nil {
		r.fail(errors.Wrapf(err, "downloading rockspec for %s", spec))
		return
	}
	parsed, err := rockspec.Parse(rockspecText)
	if err != nil {
		r.fail(errors.Wrapf(err, "parsing rockspec for %s", spec))
		return
	}

	r.mu.Lock()
	r.results = append(r.results, InstallSpec{
		BuildBehaviour:   req.Behaviour,
		RockspecDownload: rockspecText,
		Rockspec:         parsed,
		LocalSpec:        spec,
		Constraint:       constraint,
		Id:               id,
	})
	r.mu.Unlock()

	var wgChildren sync.WaitGroup
	for _, dep := range parsed.CurrentDependencies() {
		if isLuaRuntime(dep.Req.Name) {
			continue
		}
		wgChildren.Add(1)
		go r.resolveOne(ctx, Request{Req: dep.Req, Behaviour: req.Behaviour}, &wgChildren)
	}
	wgChildren.Wait()
}

// recordName registers name's requirement for this resolve pass,
// returning the previously-recorded requirement string if it differs
// (a potential conflict), or "" if this is the first sighting or it
// matches exactly.
func (r *resolver) recordName(name, constraint string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	prior, seen := r.byName[name]
	if !seen {
		r.byName[name] = constraint
		return ""
	}
	if prior == constraint || prior == "" || constraint == "" {
		return ""
	}
	return prior
}

func (r *resolver) markVisited(id lockfile.LocalPackageId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visited.Get(string(id)); ok {
		return false
	}
	r.visited.Insert(string(id), struct{}{})
	return true
}

// lockConstraint serializes req the way LocalPackage.Constraint expects:
// empty for an unconstrained ("any") requirement, the requirement's
// string form otherwise (spec §4.10 step 2: "exact if the request is
// specific, else unconstrained").
func lockConstraint(req version.PackageVersionReq) string {
	return req.String()
}

func isLuaRuntime(name version.PackageName) bool {
	switch name.String() {
	case "lua", "luajit":
		return true
	default:
		return false
	}
}
