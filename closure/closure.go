// Package closure implements the whole-program walks over the import
// graph: transitive dependency enumeration, managed-runtime
// compatibility, and the decision of whether a package needs managed
// code at all.
package closure

import (
	"sort"

	"github.com/sidl-dev/sidlgen/ast"
	"github.com/sidl-dev/sidlgen/errors"
	"github.com/sidl-dev/sidlgen/fqn"
	"github.com/sidl-dev/sidlgen/logger"
	"github.com/sidl-dev/sidlgen/stability"
)

// Source supplies parsed units and package listings to the walkers. The
// resolver satisfies it; tests substitute fakes.
type Source interface {
	Parse(f fqn.FQName, enforcement stability.Enforcement) (*ast.Unit, error)
	ListPackageInterfaces(pkg fqn.FQName) ([]fqn.FQName, error)
}

// packageUnits parses every unit of a package.
func packageUnits(src Source, pkg fqn.FQName) ([]*ast.Unit, error) {
	interfaces, err := src.ListPackageInterfaces(pkg)
	if err != nil {
		return nil, err
	}
	units := make([]*ast.Unit, 0, len(interfaces))
	for _, name := range interfaces {
		unit, err := src.Parse(name, stability.EnforceNone)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

// directImports returns the distinct external package@version names
// imported by any unit of pkg.
func directImports(src Source, pkg fqn.FQName) ([]fqn.FQName, error) {
	units, err := packageUnits(src, pkg)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []fqn.FQName
	for _, unit := range units {
		for _, imp := range unit.ImportedPackages() {
			key := imp.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, imp)
		}
	}
	return out, nil
}

// ImportedPackages returns the full transitive closure of packages that
// pkg depends on, excluding pkg itself, in canonical order. The result
// is deterministic regardless of traversal order.
func ImportedPackages(src Source, pkg fqn.FQName) ([]fqn.FQName, error) {
	if !pkg.IsPackageOnly() {
		return nil, errors.NewInvalidNamef("%s does not name a package@version", pkg)
	}

	visited := map[string]struct{}{pkg.String(): {}}
	work := []fqn.FQName{pkg}
	var out []fqn.FQName

	for len(work) > 0 {
		current := work[0]
		work = work[1:]

		imports, err := directImports(src, current)
		if err != nil {
			return nil, errors.Wrapf(err, "walking imports of %s", current)
		}
		for _, imp := range imports {
			key := imp.String()
			if _, ok := visited[key]; ok {
				continue
			}
			visited[key] = struct{}{}
			out = append(out, imp)
			work = append(work, imp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	logger.Debugw("computed import closure", "package", pkg.String(), "size", len(out))
	return out, nil
}

// CompatibleWithManaged reports whether pkg and everything it
// transitively imports can be represented in the managed runtime. The
// walk short-circuits on the first incompatible unit, so units past it
// may never be parsed.
func CompatibleWithManaged(src Source, pkg fqn.FQName) (bool, error) {
	if !pkg.IsPackageOnly() {
		return false, errors.NewInvalidNamef("%s does not name a package@version", pkg)
	}

	visited := map[string]struct{}{pkg.String(): {}}
	work := []fqn.FQName{pkg}

	for len(work) > 0 {
		current := work[0]
		work = work[1:]

		units, err := packageUnits(src, current)
		if err != nil {
			return false, errors.Wrapf(err, "checking managed compatibility of %s", current)
		}
		for _, unit := range units {
			if !unit.ManagedCompatible {
				logger.Debugw("managed-incompatible unit", "unit", unit.FQName.String())
				return false, nil
			}
			for _, imp := range unit.ImportedPackages() {
				key := imp.String()
				if _, ok := visited[key]; ok {
					continue
				}
				visited[key] = struct{}{}
				work = append(work, imp)
			}
		}
	}
	return true, nil
}

// NeedsManagedCode reports whether generating managed bindings for pkg
// would produce any output:
//
//   - an empty package produces nothing;
//   - any interface unit, or more than one unit, produces code;
//   - a lone types unit produces code only if it declares something
//     besides pure aliases, since aliases are erased in managed
//     bindings.
func NeedsManagedCode(src Source, pkg fqn.FQName) (bool, error) {
	if !pkg.IsPackageOnly() {
		return false, errors.NewInvalidNamef("%s does not name a package@version", pkg)
	}

	interfaces, err := src.ListPackageInterfaces(pkg)
	if err != nil {
		return false, err
	}
	if len(interfaces) == 0 {
		return false, nil
	}
	if len(interfaces) > 1 || !interfaces[0].IsTypesUnit() {
		return true, nil
	}

	unit, err := src.Parse(interfaces[0], stability.EnforceNone)
	if err != nil {
		return false, err
	}
	return unit.HasNonTypedefDecl(), nil
}
