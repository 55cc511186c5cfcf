// Package fqn implements the fully-qualified name model for SIDL packages
// and interfaces.
//
// A fully-qualified name has the canonical form
//
//	com.acme.nfc@1.0::INfc
//
// where the dotted package is mandatory, the @major.minor version and the
// ::Name part are optional. The reserved unit name "types" holds a
// package's shared type declarations; the extended form "types.Foo"
// selects a single declaration inside that unit.
package fqn

import (
	"strconv"
	"strings"

	"github.com/sidl-dev/sidlgen/errors"
)

// TypesUnitName is the reserved per-package unit holding shared type
// declarations.
const TypesUnitName = "types"

// Version is a package version. Ordering is numeric, not lexical:
// 1.9 < 1.10.
type Version struct {
	Major uint
	Minor uint
}

// ParseVersion parses "major.minor" with purely numeric components.
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, errors.NewInvalidNamef("version %q must be of the form major.minor", s)
	}
	maj, err := strconv.ParseUint(major, 10, 32)
	if err != nil {
		return Version{}, errors.NewInvalidNamef("version %q has non-numeric major component", s)
	}
	min, err := strconv.ParseUint(minor, 10, 32)
	if err != nil {
		return Version{}, errors.NewInvalidNamef("version %q has non-numeric minor component", s)
	}
	return Version{Major: uint(maj), Minor: uint(min)}, nil
}

func (v Version) String() string {
	return strconv.FormatUint(uint64(v.Major), 10) + "." + strconv.FormatUint(uint64(v.Minor), 10)
}

// Compare returns -1, 0 or +1 ordering versions numerically.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		if v.Major < o.Major {
			return -1
		}
		return 1
	case v.Minor != o.Minor:
		if v.Minor < o.Minor {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// DownRev returns the version with the minor component decremented.
// Calling DownRev on a .0 version is a programming error.
func (v Version) DownRev() Version {
	if v.Minor == 0 {
		panic("fqn: DownRev on minor version 0")
	}
	return Version{Major: v.Major, Minor: v.Minor - 1}
}

// FQName identifies a package, an optional version, and an optional
// interface or type name. The zero value is invalid; construct through
// Parse or New. FQName is an immutable value type.
type FQName struct {
	pkg     string
	version *Version
	name    string
}

// New builds a fully-qualified FQName from parts. The parts are not
// validated; use Parse for untrusted input.
func New(pkg string, version Version, name string) FQName {
	v := version
	return FQName{pkg: pkg, version: &v, name: name}
}

// NewPackage builds a package-only FQName (version present, no name).
func NewPackage(pkg string, version Version) FQName {
	v := version
	return FQName{pkg: pkg, version: &v}
}

// Parse parses a canonical FQName string. The accepted grammar is
//
//	package [ "@" major "." minor [ "::" name ] ]
//
// A name may contain at most one dot, and only in the "types.X" form
// selecting a single declaration inside the types unit.
func Parse(s string) (FQName, error) {
	if s == "" {
		return FQName{}, errors.Wrap(errors.ErrInvalidName, "empty name")
	}

	rest := s
	var name string
	if pkgVer, n, ok := strings.Cut(rest, "::"); ok {
		if n == "" {
			return FQName{}, errors.NewInvalidNamef("%q has an empty name after '::'", s)
		}
		rest, name = pkgVer, n
	}

	var version *Version
	if pkg, ver, ok := strings.Cut(rest, "@"); ok {
		v, err := ParseVersion(ver)
		if err != nil {
			return FQName{}, errors.Wrapf(err, "parsing %q", s)
		}
		rest = pkg
		version = &v
	}

	if name != "" && version == nil {
		return FQName{}, errors.NewInvalidNamef("%q names a declaration but has no version", s)
	}

	if err := validatePackage(rest); err != nil {
		return FQName{}, errors.Wrapf(err, "parsing %q", s)
	}
	if err := validateName(name); err != nil {
		return FQName{}, errors.Wrapf(err, "parsing %q", s)
	}

	return FQName{pkg: rest, version: version, name: name}, nil
}

// MustParse is Parse for statically-known names; it panics on error.
func MustParse(s string) FQName {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

func validatePackage(pkg string) error {
	if pkg == "" {
		return errors.Wrap(errors.ErrInvalidName, "empty package")
	}
	for _, segment := range strings.Split(pkg, ".") {
		if !validSegment(segment) {
			return errors.NewInvalidNamef("package segment %q is not an identifier", segment)
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return nil
	}
	head, member, hasDot := strings.Cut(name, ".")
	if !hasDot {
		if !validSegment(name) {
			return errors.NewInvalidNamef("name %q is not an identifier", name)
		}
		return nil
	}
	// The only dotted form allowed selects one declaration in the types
	// unit: "types.Foo".
	if head != TypesUnitName || strings.Contains(member, ".") || !validSegment(member) {
		return errors.NewInvalidNamef("dotted name %q is only valid as %s.<decl>", name, TypesUnitName)
	}
	return nil
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Package returns the dotted package name.
func (f FQName) Package() string { return f.pkg }

// PackageSegments returns the package split on dots.
func (f FQName) PackageSegments() []string { return strings.Split(f.pkg, ".") }

// Version returns the version and whether one is present.
func (f FQName) Version() (Version, bool) {
	if f.version == nil {
		return Version{}, false
	}
	return *f.version, true
}

// Name returns the interface or type name, empty for package-only names.
func (f FQName) Name() string { return f.name }

// IsValid reports whether the FQName was properly constructed.
func (f FQName) IsValid() bool { return f.pkg != "" }

// IsFullyQualified reports whether package, version and name are all
// present.
func (f FQName) IsFullyQualified() bool {
	return f.pkg != "" && f.version != nil && f.name != ""
}

// IsPackageOnly reports whether the name refers to a whole package at a
// specific version (version present, name absent).
func (f FQName) IsPackageOnly() bool {
	return f.pkg != "" && f.version != nil && f.name == ""
}

// InPackage reports whether the package equals prefix or sits below it in
// the dotted hierarchy.
func (f FQName) InPackage(prefix string) bool {
	if f.pkg == prefix {
		return true
	}
	return strings.HasPrefix(f.pkg, prefix+".")
}

// IsTypesUnit reports whether the name refers to the package's reserved
// types unit.
func (f FQName) IsTypesUnit() bool { return f.name == TypesUnitName }

// IsTypesMember reports whether the name uses the "types.X" refinement.
func (f FQName) IsTypesMember() bool {
	return strings.HasPrefix(f.name, TypesUnitName+".")
}

// TypesMember returns the declaration selected by a "types.X" name, or
// the empty string.
func (f FQName) TypesMember() string {
	if !f.IsTypesMember() {
		return ""
	}
	return f.name[len(TypesUnitName)+1:]
}

// TypesForPackage returns the sibling FQName naming the package's types
// unit.
func (f FQName) TypesForPackage() FQName {
	return FQName{pkg: f.pkg, version: f.version, name: TypesUnitName}
}

// PackageAndVersion strips the name, yielding the package-only FQName.
func (f FQName) PackageAndVersion() FQName {
	return FQName{pkg: f.pkg, version: f.version}
}

// WithName returns the FQName naming a unit inside the same
// package@version.
func (f FQName) WithName(name string) FQName {
	return FQName{pkg: f.pkg, version: f.version, name: name}
}

// String formats the canonical representation; Parse(f.String()) == f.
func (f FQName) String() string {
	var b strings.Builder
	b.WriteString(f.pkg)
	if f.version != nil {
		b.WriteByte('@')
		b.WriteString(f.version.String())
	}
	if f.name != "" {
		b.WriteString("::")
		b.WriteString(f.name)
	}
	return b.String()
}

// Compare orders FQNames by package (segment-wise lexicographic), then
// version (numeric, absent first), then name. The ordering makes
// generated interface lists deterministic regardless of filesystem
// enumeration order.
func (f FQName) Compare(o FQName) int {
	if c := comparePackages(f.pkg, o.pkg); c != 0 {
		return c
	}
	switch {
	case f.version == nil && o.version != nil:
		return -1
	case f.version != nil && o.version == nil:
		return 1
	case f.version != nil && o.version != nil:
		if c := f.version.Compare(*o.version); c != 0 {
			return c
		}
	}
	return strings.Compare(f.name, o.name)
}

// Less reports whether f orders before o; convenience for sort.Slice.
func (f FQName) Less(o FQName) bool { return f.Compare(o) < 0 }

func comparePackages(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}
