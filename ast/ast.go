// Package ast defines the parsed-unit handle produced by the SIDL
// frontend and consumed by the resolver, closure walkers, and targets.
//
// The grammar and type-checker themselves live outside this module; this
// package only fixes the contract they must satisfy.
package ast

import (
	"github.com/sidl-dev/sidlgen/fqn"
)

// TypeKind classifies a declaration inside a unit.
type TypeKind string

const (
	KindTypedef TypeKind = "typedef"
	KindEnum    TypeKind = "enum"
	KindStruct  TypeKind = "struct"
	KindUnion   TypeKind = "union"
	KindBitmask TypeKind = "bitmask"
)

// TypeDecl is one named type declared by a unit.
type TypeDecl struct {
	Name string
	Kind TypeKind

	// Exported marks declarations annotated for constant export into
	// legacy headers.
	Exported bool
}

// IsTypeDef reports whether the declaration is a pure alias. A types-only
// package whose declarations are all aliases produces no code for the
// managed target.
func (d TypeDecl) IsTypeDef() bool { return d.Kind == KindTypedef }

// Unit is the parsed representation of one source unit (one interface
// file or one types file). A Unit is created once per distinct FQName by
// the resolver and never mutated afterwards.
type Unit struct {
	// FQName the unit was resolved as, e.g. com.acme.nfc@1.0::INfc.
	FQName fqn.FQName

	// Filename is the absolute path the unit was read from.
	Filename string

	// SourceText is the unit's full source, retained for stability
	// hashing.
	SourceText string

	// IsInterface is true for interface units, false for the types unit.
	IsInterface bool

	// Imports lists the unit's direct imports as written, fully qualified
	// to package@version (with or without a unit name).
	Imports []fqn.FQName

	// Declared lists the unit's named type declarations.
	Declared []TypeDecl

	// ManagedCompatible is false when the unit uses native-only
	// primitives that cannot be represented in the managed runtime.
	ManagedCompatible bool
}

// ImportedPackages returns the distinct package@version names imported
// directly by the unit, excluding its own package: a same-package import
// (such as the implicit types unit) is not an external dependency.
func (u *Unit) ImportedPackages() []fqn.FQName {
	seen := make(map[string]struct{}, len(u.Imports))
	var out []fqn.FQName
	for _, imp := range u.Imports {
		pkg := imp.PackageAndVersion()
		if pkg.String() == u.FQName.PackageAndVersion().String() {
			continue
		}
		key := pkg.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, pkg)
	}
	return out
}

// ExportedTypes returns the unit's declarations marked for export.
func (u *Unit) ExportedTypes() []TypeDecl {
	var out []TypeDecl
	for _, d := range u.Declared {
		if d.Exported {
			out = append(out, d)
		}
	}
	return out
}

// HasNonTypedefDecl reports whether any declaration is not a pure alias.
func (u *Unit) HasNonTypedefDecl() bool {
	for _, d := range u.Declared {
		if !d.IsTypeDef() {
			return true
		}
	}
	return false
}

// Frontend is the external grammar and type-checker. ParseFile reads and
// checks the unit at path, which the resolver expects to declare want's
// package, version, and unit name.
//
// A frontend that resolves imports during ParseFile must resolve them
// back through the resolver that invoked it, never by reading files
// itself: the resolver's in-progress cache entry is what turns a cyclic
// import into a defined error instead of unbounded recursion. A frontend
// that only records imports, like the bundled declaration reader, leaves
// import resolution to the closure walkers, whose seen-sets terminate on
// any graph.
type Frontend interface {
	ParseFile(path string, want fqn.FQName) (*Unit, error)
}
