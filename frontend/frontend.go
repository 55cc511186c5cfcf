// Package frontend reads .sidl sources at the declaration level: the
// package header, imports, and top-level type and interface
// declarations. Bodies are not type-checked; semantic analysis is owned
// by the external checker.
//
// Imports are recorded, not resolved. A checking frontend that follows
// imports must resolve them through the invoking resolver (see
// ast.Frontend) so cyclic imports surface as errors.
package frontend

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/sidl-dev/sidlgen/ast"
	"github.com/sidl-dev/sidlgen/errors"
	"github.com/sidl-dev/sidlgen/fqn"
)

var (
	packageRe   = regexp.MustCompile(`^package\s+([A-Za-z_][\w.]*@\d+\.\d+)\s*;`)
	importRe    = regexp.MustCompile(`^import\s+([A-Za-z_][\w.]*(?:@\d+\.\d+(?:::[A-Za-z_]\w*)?)?)\s*;`)
	interfaceRe = regexp.MustCompile(`^interface\s+([A-Za-z_]\w*)`)
	typeDeclRe  = regexp.MustCompile(`^(enum|struct|union|bitmask)\s+([A-Za-z_]\w*)`)
	typedefRe   = regexp.MustCompile(`^typedef\s+.+\s([A-Za-z_]\w*)\s*;`)
)

// Annotations recognized ahead of a declaration or at file scope.
const (
	annotationExport     = "@export"
	annotationNativeOnly = "@native_only"
)

type declFrontend struct{}

// New returns the declaration-level frontend.
func New() ast.Frontend {
	return declFrontend{}
}

// ParseFile reads the unit at path. The declared package must carry a
// version; the unit's own FQName is the declared package plus either the
// declared interface name or the reserved types name.
func (declFrontend) ParseFile(path string, want fqn.FQName) (*ast.Unit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	unit := &ast.Unit{
		Filename:          path,
		SourceText:        string(raw),
		ManagedCompatible: true,
	}

	var pkg fqn.FQName
	havePackage := false
	exportNext := false
	interfaceName := ""

	scanner := bufio.NewScanner(strings.NewReader(unit.SourceText))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		switch {
		case line == annotationExport:
			exportNext = true
			continue
		case line == annotationNativeOnly:
			unit.ManagedCompatible = false
			continue
		}

		if m := packageRe.FindStringSubmatch(line); m != nil {
			if havePackage {
				return nil, errors.Newf("%s:%d: duplicate package declaration", path, lineno)
			}
			pkg, err = fqn.Parse(m[1])
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, lineno)
			}
			havePackage = true
			continue
		}
		if m := importRe.FindStringSubmatch(line); m != nil {
			imp, err := fqn.Parse(m[1])
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, lineno)
			}
			unit.Imports = append(unit.Imports, imp)
			continue
		}
		if m := interfaceRe.FindStringSubmatch(line); m != nil {
			if interfaceName != "" {
				return nil, errors.Newf("%s:%d: a unit declares at most one interface", path, lineno)
			}
			interfaceName = m[1]
			exportNext = false
			continue
		}
		if m := typeDeclRe.FindStringSubmatch(line); m != nil {
			unit.Declared = append(unit.Declared, ast.TypeDecl{
				Name:     m[2],
				Kind:     ast.TypeKind(m[1]),
				Exported: exportNext,
			})
			exportNext = false
			continue
		}
		if m := typedefRe.FindStringSubmatch(line); m != nil {
			unit.Declared = append(unit.Declared, ast.TypeDecl{
				Name:     m[1],
				Kind:     ast.KindTypedef,
				Exported: exportNext,
			})
			exportNext = false
			continue
		}
		// Everything else is body text for the external checker.
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	if !havePackage {
		return nil, errors.Newf("%s: missing package declaration", path)
	}

	name := fqn.TypesUnitName
	if interfaceName != "" {
		name = interfaceName
		unit.IsInterface = true
	}
	version, _ := pkg.Version()
	unit.FQName = fqn.New(pkg.Package(), version, name)
	return unit, nil
}
