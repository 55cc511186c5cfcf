// Package resolver maps package names to source directories, drives the
// frontend, and memoizes parsed units for the lifetime of one process
// invocation.
package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sidl-dev/sidlgen/ast"
	"github.com/sidl-dev/sidlgen/errors"
	"github.com/sidl-dev/sidlgen/fqn"
	"github.com/sidl-dev/sidlgen/logger"
	"github.com/sidl-dev/sidlgen/stability"
)

// SourceExt is the file extension of SIDL source units.
const SourceExt = ".sidl"

// DefaultLedgerName is the frozen-interface ledger file expected at each
// package root.
const DefaultLedgerName = "frozen.txt"

type packageRoot struct {
	prefix string // e.g. com.acme
	path   string // e.g. interfaces/acme
}

// Resolver resolves FQNames to paths and parsed units. It owns the only
// shared mutable state of a run: the parse cache and the per-package
// enforcement memo. A Resolver is not safe for concurrent use; the
// compiler is strictly single-threaded.
type Resolver struct {
	frontend ast.Frontend

	roots        []packageRoot // explicit mappings, ordered as added
	defaultRoots []packageRoot // built-in fallbacks

	ledgerName string

	// cache holds one entry per distinct FQName. A nil entry marks a
	// parse in progress, which is how cyclic imports surface.
	cache map[string]*ast.Unit

	// enforced memoizes packages that already passed restriction checks.
	// enforcing guards against re-entry while a package's own interfaces
	// are being parsed for enforcement.
	enforced  map[string]struct{}
	enforcing map[string]struct{}
}

// New creates a Resolver over the given frontend.
func New(frontend ast.Frontend) *Resolver {
	return &Resolver{
		frontend:   frontend,
		ledgerName: DefaultLedgerName,
		cache:      make(map[string]*ast.Unit),
		enforced:   make(map[string]struct{}),
		enforcing:  make(map[string]struct{}),
	}
}

// SetLedgerName overrides the ledger filename looked up at package roots.
func (r *Resolver) SetLedgerName(name string) { r.ledgerName = name }

// AddRoot registers an explicit package-root mapping. Registering the
// same prefix twice with an identical path is a no-op; a different path
// is a conflict.
func (r *Resolver) AddRoot(prefix, path string) error {
	return addRoot(&r.roots, prefix, path)
}

// AddDefaultRoot registers a built-in mapping consulted only when no
// explicit root matches. A conflicting default is ignored rather than
// fatal, so explicit -r flags can shadow the built-ins.
func (r *Resolver) AddDefaultRoot(prefix, path string) {
	if err := addRoot(&r.defaultRoots, prefix, path); err != nil {
		logger.Debugw("ignoring conflicting default package root", "prefix", prefix, "path", path)
	}
}

func addRoot(roots *[]packageRoot, prefix, path string) error {
	if err := validatePrefix(prefix); err != nil {
		return err
	}
	for _, root := range *roots {
		if root.prefix == prefix {
			if root.path == path {
				return nil
			}
			return errors.Wrapf(errors.ErrDuplicateRoot,
				"%s already mapped to %s, cannot remap to %s", prefix, root.path, path)
		}
	}
	*roots = append(*roots, packageRoot{prefix: prefix, path: path})
	return nil
}

func validatePrefix(prefix string) error {
	f, err := fqn.Parse(prefix)
	if err != nil {
		return err
	}
	if _, hasVersion := f.Version(); hasVersion || f.Name() != "" {
		return errors.NewInvalidNamef("package root %q must be a bare package prefix", prefix)
	}
	return nil
}

// findRoot selects the mapping with the longest prefix matching f's
// package. Explicit mappings win over defaults at equal length.
func (r *Resolver) findRoot(f fqn.FQName) (packageRoot, error) {
	best := packageRoot{}
	bestLen := -1
	for _, root := range r.defaultRoots {
		if f.InPackage(root.prefix) && len(root.prefix) > bestLen {
			best, bestLen = root, len(root.prefix)
		}
	}
	for _, root := range r.roots {
		if f.InPackage(root.prefix) && len(root.prefix) >= bestLen {
			best, bestLen = root, len(root.prefix)
		}
	}
	if bestLen < 0 {
		return packageRoot{}, errors.Wrapf(errors.ErrRootNotFound, "for %s", f)
	}
	return best, nil
}

// RootPrefix returns the package-root prefix covering f.
func (r *Resolver) RootPrefix(f fqn.FQName) (string, error) {
	root, err := r.findRoot(f)
	if err != nil {
		return "", err
	}
	return root.prefix, nil
}

// PackageDir returns the source directory of f's package@version, e.g.
// interfaces/acme/nfc/1.0 for com.acme.nfc@1.0 rooted at
// com.acme:interfaces/acme.
func (r *Resolver) PackageDir(f fqn.FQName) (string, error) {
	root, err := r.findRoot(f)
	if err != nil {
		return "", err
	}
	version, ok := f.Version()
	if !ok {
		return "", errors.NewInvalidNamef("%s has no version to resolve", f)
	}

	suffix := strings.TrimPrefix(f.Package(), root.prefix)
	suffix = strings.TrimPrefix(suffix, ".")

	parts := []string{root.path}
	if suffix != "" {
		parts = append(parts, strings.Split(suffix, ".")...)
	}
	parts = append(parts, version.String())
	return filepath.Join(parts...), nil
}

// ResolvePath returns the source file path of a fully-qualified unit.
func (r *Resolver) ResolvePath(f fqn.FQName) (string, error) {
	if !f.IsFullyQualified() {
		return "", errors.NewInvalidNamef("%s does not name a source unit", f)
	}
	dir, err := r.PackageDir(f)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, f.Name()+SourceExt), nil
}

// LedgerPath returns the frozen-interface ledger location for f's root.
func (r *Resolver) LedgerPath(f fqn.FQName) (string, error) {
	root, err := r.findRoot(f)
	if err != nil {
		return "", err
	}
	return filepath.Join(root.path, r.ledgerName), nil
}

// ListPackageInterfaces enumerates every unit declared by a package: one
// FQName per .sidl file, the reserved types unit first, the rest in
// lexicographic order. The ordering makes downstream generation
// deterministic regardless of directory enumeration order.
func (r *Resolver) ListPackageInterfaces(pkg fqn.FQName) ([]fqn.FQName, error) {
	if !pkg.IsPackageOnly() {
		return nil, errors.NewInvalidNamef("%s does not name a package@version", pkg)
	}

	dir, err := r.PackageDir(pkg)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrPackageNotFound, "%s at %s", pkg, dir)
		}
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), SourceExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), SourceExt))
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == fqn.TypesUnitName {
			return true
		}
		if names[j] == fqn.TypesUnitName {
			return false
		}
		return names[i] < names[j]
	})

	interfaces := make([]fqn.FQName, 0, len(names))
	for _, name := range names {
		unit, err := fqn.Parse(pkg.String() + "::" + name)
		if err != nil {
			return nil, errors.Wrapf(err, "package %s declares invalid unit filename %q", pkg, name)
		}
		interfaces = append(interfaces, unit)
	}
	return interfaces, nil
}

// IsTypesOnlyPackage reports whether the package declares nothing but its
// types unit.
func (r *Resolver) IsTypesOnlyPackage(pkg fqn.FQName) (bool, error) {
	interfaces, err := r.ListPackageInterfaces(pkg)
	if err != nil {
		return false, err
	}
	return len(interfaces) == 1 && interfaces[0].IsTypesUnit(), nil
}

// Parse resolves, parses, and caches the unit named by f. Repeated calls
// for the same FQName are side-effect-free after the first: the frontend
// runs at most once per distinct FQName per process.
//
// Parsing an interface implicitly parses its package's types unit first
// (without enforcement), matching the language rule that every interface
// sees its package's shared types.
//
// Under stability.EnforceHash the whole package's restriction checks run
// before the unit is returned; a stability mismatch is fatal but NOT
// cached as a failure, so a later call with different enforcement can
// still succeed.
func (r *Resolver) Parse(f fqn.FQName, enforcement stability.Enforcement) (*ast.Unit, error) {
	if !f.IsFullyQualified() || f.IsTypesMember() {
		return nil, errors.NewInvalidNamef("%s does not name a parseable unit", f)
	}

	key := f.String()
	if unit, hit := r.cache[key]; hit {
		if unit == nil {
			// Entry is present but unfinished: we re-entered Parse for a
			// unit somewhere up the current call stack.
			return nil, errors.Wrapf(errors.ErrCyclicImport, "while parsing %s", f)
		}
		logger.Debugw("parse cache hit", "fqname", key)
		return unit, nil
	}

	// Reserve the slot before any recursive work so cycles are
	// discovered instead of recursing forever.
	r.cache[key] = nil
	unit, err := r.parseLocked(f)
	if err != nil {
		delete(r.cache, key)
		return nil, err
	}
	r.cache[key] = unit

	// Restriction checks may parse sibling units; the cache entry above
	// lets them see this unit without re-entering the frontend.
	if err := r.enforceRestrictionsOnPackage(f.PackageAndVersion(), enforcement); err != nil {
		delete(r.cache, key)
		return nil, err
	}
	return unit, nil
}

func (r *Resolver) parseLocked(f fqn.FQName) (*ast.Unit, error) {
	if !f.IsTypesUnit() {
		// Any interface implicitly imports its package's types unit, if
		// the package declares one.
		typesName := f.TypesForPackage()
		typesPath, err := r.ResolvePath(typesName)
		if err != nil {
			return nil, err
		}
		if _, statErr := os.Stat(typesPath); statErr == nil {
			if _, err := r.Parse(typesName, stability.EnforceNone); err != nil {
				return nil, errors.Wrapf(err, "parsing implicit types unit of %s", f)
			}
		}
	}

	path, err := r.ResolvePath(f)
	if err != nil {
		return nil, err
	}

	logger.Debugw("file access", "path", path, "mode", "r")
	unit, err := r.frontend.ParseFile(path, f)
	if err != nil {
		// Mark keeps the underlying chain intact: a cyclic import
		// surfacing through a nested parse still classifies as one.
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrParse), "parsing %s", f)
	}
	if err := validateUnit(unit, f, path); err != nil {
		return nil, err
	}
	return unit, nil
}

// validateUnit checks the frontend's result against the requested name:
// the file must declare the expected package and version, a types unit
// must not declare an interface, and an interface file must declare
// exactly the interface its filename promises.
func validateUnit(unit *ast.Unit, want fqn.FQName, path string) error {
	declared := unit.FQName
	if declared.Package() != want.Package() {
		return errors.Wrapf(errors.ErrParse,
			"file %s declares package %s, expected %s", path, declared.Package(), want.Package())
	}
	dv, _ := declared.Version()
	wv, _ := want.Version()
	if dv != wv {
		return errors.Wrapf(errors.ErrParse,
			"file %s declares version %s, expected %s", path, dv, wv)
	}
	if want.IsTypesUnit() && unit.IsInterface {
		return errors.Wrapf(errors.ErrParse,
			"file %s declares an interface instead of the package's shared types", path)
	}
	if !want.IsTypesUnit() {
		if !unit.IsInterface {
			return errors.Wrapf(errors.ErrParse,
				"file %s declares types rather than interface %s", path, want.Name())
		}
		if declared.Name() != want.Name() {
			return errors.Wrapf(errors.ErrParse,
				"file %s does not declare interface %s", path, want.Name())
		}
	}
	return nil
}

// enforceRestrictionsOnPackage runs the release restrictions for a whole
// package once per process: minor versions may not skip a revision, and
// under hash enforcement every frozen interface must still match its
// recorded digest.
func (r *Resolver) enforceRestrictionsOnPackage(pkg fqn.FQName, enforcement stability.Enforcement) error {
	if enforcement == stability.EnforceNone {
		return nil
	}
	key := pkg.String()
	if _, done := r.enforced[key]; done {
		return nil
	}
	if _, busy := r.enforcing[key]; busy {
		// Already running for this package further up the stack; the
		// outer call will record the verdict.
		return nil
	}
	r.enforcing[key] = struct{}{}
	defer delete(r.enforcing, key)

	if err := r.enforceMinorVersionUprevs(pkg); err != nil {
		return err
	}
	if enforcement == stability.EnforceHash {
		if err := r.enforceHashes(pkg); err != nil {
			return err
		}
	}

	r.enforced[key] = struct{}{}
	return nil
}

// enforceMinorVersionUprevs requires that package@x.y (y > 0) has an
// immediate predecessor @x.(y-1) whenever any lower minor revision
// exists: releases cannot skip a minor version.
func (r *Resolver) enforceMinorVersionUprevs(pkg fqn.FQName) error {
	version, ok := pkg.Version()
	if !ok {
		return errors.NewInvalidNamef("%s has no version to enforce", pkg)
	}
	if version.Minor == 0 {
		return nil
	}

	prev := version
	found := false
	for prev.Minor > 0 {
		prev = prev.DownRev()
		dir, err := r.PackageDir(fqn.NewPackage(pkg.Package(), prev))
		if err != nil {
			return err
		}
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			found = true
			break
		}
	}
	if !found {
		// No lower minor revision exists at all.
		return nil
	}
	if prev != version.DownRev() {
		return errors.Newf(
			"cannot enforce minor version uprevs for %s: found %s@%s but missing %s@%s; you cannot skip a minor version",
			pkg, pkg.Package(), prev, pkg.Package(), version.DownRev())
	}
	return nil
}

// enforceHashes verifies every unit of the package against the frozen
// ledger at its package root.
func (r *Resolver) enforceHashes(pkg fqn.FQName) error {
	interfaces, err := r.ListPackageInterfaces(pkg)
	if err != nil {
		return err
	}
	ledgerPath, err := r.LedgerPath(pkg)
	if err != nil {
		return err
	}

	for _, name := range interfaces {
		unit, err := r.Parse(name, stability.EnforceNone)
		if err != nil {
			return err
		}
		frozen, err := stability.Lookup(ledgerPath, name)
		if err != nil {
			return err
		}
		if err := stability.Verify(name, unit.SourceText, frozen); err != nil {
			return err
		}
	}
	return nil
}
