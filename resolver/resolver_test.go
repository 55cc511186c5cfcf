package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidl-dev/sidlgen/ast"
	"github.com/sidl-dev/sidlgen/errors"
	"github.com/sidl-dev/sidlgen/fqn"
	"github.com/sidl-dev/sidlgen/stability"
)

// unitSpec describes what the fake frontend should report for one unit.
type unitSpec struct {
	imports []string
	decls   []ast.TypeDecl

	// declareAs overrides the FQName the parsed unit claims, for
	// exercising post-parse validation.
	declareAs string
	// asTypes forces IsInterface=false even for a non-types filename.
	asTypes bool
}

// fakeFrontend parses units from a spec table instead of a grammar. Like
// a real frontend it resolves each import through the resolver, which is
// what makes cyclic imports observable.
type fakeFrontend struct {
	r     *Resolver
	units map[string]unitSpec
	calls map[string]int
	order []string
}

func newFakeFrontend(units map[string]unitSpec) *fakeFrontend {
	return &fakeFrontend{units: units, calls: make(map[string]int)}
}

func (f *fakeFrontend) ParseFile(path string, want fqn.FQName) (*ast.Unit, error) {
	key := want.String()
	f.calls[key]++
	f.order = append(f.order, key)

	spec, ok := f.units[key]
	if !ok {
		return nil, errors.Newf("unexpected unit %s", key)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	declared := want
	if spec.declareAs != "" {
		declared = fqn.MustParse(spec.declareAs)
	}

	unit := &ast.Unit{
		FQName:            declared,
		Filename:          path,
		SourceText:        string(source),
		IsInterface:       !declared.IsTypesUnit() && !spec.asTypes,
		Declared:          spec.decls,
		ManagedCompatible: true,
	}
	for _, imp := range spec.imports {
		impName := fqn.MustParse(imp)
		unit.Imports = append(unit.Imports, impName)
		if impName.IsFullyQualified() {
			if _, err := f.r.Parse(impName, stability.EnforceNone); err != nil {
				return nil, err
			}
		}
	}
	return unit, nil
}

// newFixture builds a resolver over a temp tree. files maps paths
// relative to the root (e.g. "nfc/1.0/INfc.sidl") to contents.
func newFixture(t *testing.T, units map[string]unitSpec, files map[string]string) (*Resolver, *fakeFrontend, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	frontend := newFakeFrontend(units)
	r := New(frontend)
	frontend.r = r
	require.NoError(t, r.AddRoot("com.acme", root))
	return r, frontend, root
}

func TestAddRoot(t *testing.T) {
	r := New(newFakeFrontend(nil))

	require.NoError(t, r.AddRoot("com.acme", "interfaces/acme"))
	require.NoError(t, r.AddRoot("com.acme", "interfaces/acme")) // identical: no-op

	err := r.AddRoot("com.acme", "elsewhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateRoot))

	err = r.AddRoot("com.acme@1.0", "interfaces/acme")
	assert.True(t, errors.Is(err, errors.ErrInvalidName))
}

func TestFindRootPrecedence(t *testing.T) {
	r := New(newFakeFrontend(nil))
	r.AddDefaultRoot("com.acme", "default/acme")
	r.AddDefaultRoot("com.acme.nfc", "default/nfc")
	require.NoError(t, r.AddRoot("com.acme", "explicit/acme"))

	// Longest prefix wins, even when the longer mapping is a default.
	prefix, err := r.RootPrefix(fqn.MustParse("com.acme.nfc@1.0::INfc"))
	require.NoError(t, err)
	assert.Equal(t, "com.acme.nfc", prefix)

	// At equal prefix length the explicit mapping wins.
	dir, err := r.PackageDir(fqn.MustParse("com.acme.audio@2.1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("explicit", "acme", "audio", "2.1"), dir)

	_, err = r.RootPrefix(fqn.MustParse("org.other@1.0::IFoo"))
	assert.True(t, errors.Is(err, errors.ErrRootNotFound))
}

func TestResolvePath(t *testing.T) {
	r := New(newFakeFrontend(nil))
	require.NoError(t, r.AddRoot("com.acme", "interfaces/acme"))

	path, err := r.ResolvePath(fqn.MustParse("com.acme.nfc@1.0::INfc"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("interfaces", "acme", "nfc", "1.0", "INfc.sidl"), path)

	// The root package itself resolves directly under the root path.
	path, err = r.ResolvePath(fqn.MustParse("com.acme@2.0::types"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("interfaces", "acme", "2.0", "types.sidl"), path)

	_, err = r.ResolvePath(fqn.MustParse("com.acme.nfc@1.0"))
	assert.True(t, errors.Is(err, errors.ErrInvalidName))
}

func TestListPackageInterfaces(t *testing.T) {
	r, _, _ := newFixture(t, nil, map[string]string{
		"nfc/1.0/INfc.sidl":         "",
		"nfc/1.0/types.sidl":        "",
		"nfc/1.0/IAccess.sidl":      "",
		"nfc/1.0/README.md":         "not a unit",
		"nfc/1.0/notes/extra.sidl":  "nested dirs are ignored",
		"offline/1.0/.placeholder":  "",
	})

	interfaces, err := r.ListPackageInterfaces(fqn.MustParse("com.acme.nfc@1.0"))
	require.NoError(t, err)

	got := make([]string, len(interfaces))
	for i, f := range interfaces {
		got[i] = f.String()
	}
	assert.Equal(t, []string{
		"com.acme.nfc@1.0::types",
		"com.acme.nfc@1.0::IAccess",
		"com.acme.nfc@1.0::INfc",
	}, got)

	// A directory with no units is a valid, empty package.
	interfaces, err = r.ListPackageInterfaces(fqn.MustParse("com.acme.offline@1.0"))
	require.NoError(t, err)
	assert.Empty(t, interfaces)

	_, err = r.ListPackageInterfaces(fqn.MustParse("com.acme.absent@1.0"))
	assert.True(t, errors.Is(err, errors.ErrPackageNotFound))

	_, err = r.ListPackageInterfaces(fqn.MustParse("com.acme.nfc@1.0::INfc"))
	assert.True(t, errors.Is(err, errors.ErrInvalidName))
}

func TestIsTypesOnlyPackage(t *testing.T) {
	r, _, _ := newFixture(t, nil, map[string]string{
		"shared/1.0/types.sidl": "",
		"nfc/1.0/types.sidl":    "",
		"nfc/1.0/INfc.sidl":     "",
	})

	only, err := r.IsTypesOnlyPackage(fqn.MustParse("com.acme.shared@1.0"))
	require.NoError(t, err)
	assert.True(t, only)

	only, err = r.IsTypesOnlyPackage(fqn.MustParse("com.acme.nfc@1.0"))
	require.NoError(t, err)
	assert.False(t, only)
}

func TestParseCachesUnits(t *testing.T) {
	r, frontend, _ := newFixture(t, map[string]unitSpec{
		"com.acme.nfc@1.0::types": {},
		"com.acme.nfc@1.0::INfc":  {},
	}, map[string]string{
		"nfc/1.0/types.sidl": "types",
		"nfc/1.0/INfc.sidl":  "interface",
	})

	name := fqn.MustParse("com.acme.nfc@1.0::INfc")
	first, err := r.Parse(name, stability.EnforceNone)
	require.NoError(t, err)

	second, err := r.Parse(name, stability.EnforceNone)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, frontend.calls["com.acme.nfc@1.0::INfc"])
	assert.Equal(t, 1, frontend.calls["com.acme.nfc@1.0::types"])

	// The implicit types unit parses before the interface that needs it.
	assert.Equal(t, []string{"com.acme.nfc@1.0::types", "com.acme.nfc@1.0::INfc"}, frontend.order)
}

func TestParseWithoutTypesUnit(t *testing.T) {
	r, frontend, _ := newFixture(t, map[string]unitSpec{
		"com.acme.nfc@1.0::INfc": {},
	}, map[string]string{
		"nfc/1.0/INfc.sidl": "interface",
	})

	_, err := r.Parse(fqn.MustParse("com.acme.nfc@1.0::INfc"), stability.EnforceNone)
	require.NoError(t, err)
	assert.Zero(t, frontend.calls["com.acme.nfc@1.0::types"])
}

func TestParseRejectsNonUnits(t *testing.T) {
	r, _, _ := newFixture(t, nil, nil)

	for _, s := range []string{
		"com.acme.nfc@1.0",              // package, not unit
		"com.acme.nfc@1.0::types.Event", // declaration, not unit
	} {
		_, err := r.Parse(fqn.MustParse(s), stability.EnforceNone)
		assert.True(t, errors.Is(err, errors.ErrInvalidName), s)
	}
}

func TestParseValidatesDeclaredName(t *testing.T) {
	tests := []struct {
		name      string
		spec      unitSpec
		errSubstr string
	}{
		{"wrong package", unitSpec{declareAs: "com.other.nfc@1.0::INfc"}, "declares package"},
		{"wrong version", unitSpec{declareAs: "com.acme.nfc@2.0::INfc"}, "declares version"},
		{"wrong interface", unitSpec{declareAs: "com.acme.nfc@1.0::IOther"}, "does not declare interface"},
		{"types not interface", unitSpec{asTypes: true}, "declares types rather than interface"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newFixture(t, map[string]unitSpec{
				"com.acme.nfc@1.0::INfc": tt.spec,
			}, map[string]string{
				"nfc/1.0/INfc.sidl": "interface",
			})

			_, err := r.Parse(fqn.MustParse("com.acme.nfc@1.0::INfc"), stability.EnforceNone)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrParse))
			assert.ErrorContains(t, err, tt.errSubstr)
		})
	}
}

func TestParseCyclicImport(t *testing.T) {
	r, _, _ := newFixture(t, map[string]unitSpec{
		"com.acme.a@1.0::IA": {imports: []string{"com.acme.b@1.0::IB"}},
		"com.acme.b@1.0::IB": {imports: []string{"com.acme.a@1.0::IA"}},
	}, map[string]string{
		"a/1.0/IA.sidl": "a",
		"b/1.0/IB.sidl": "b",
	})

	_, err := r.Parse(fqn.MustParse("com.acme.a@1.0::IA"), stability.EnforceNone)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCyclicImport))

	// The failed units must not be poisoned in the cache as successes.
	_, err = r.Parse(fqn.MustParse("com.acme.a@1.0::IA"), stability.EnforceNone)
	assert.True(t, errors.Is(err, errors.ErrCyclicImport))
}

func TestParseAcyclicDiamond(t *testing.T) {
	// IA and IB both import the shared types package; each unit still
	// parses exactly once.
	r, frontend, _ := newFixture(t, map[string]unitSpec{
		"com.acme.shared@1.0::types": {},
		"com.acme.a@1.0::IA":         {imports: []string{"com.acme.shared@1.0::types", "com.acme.b@1.0::IB"}},
		"com.acme.b@1.0::IB":         {imports: []string{"com.acme.shared@1.0::types"}},
	}, map[string]string{
		"shared/1.0/types.sidl": "t",
		"a/1.0/IA.sidl":         "a",
		"b/1.0/IB.sidl":         "b",
	})

	_, err := r.Parse(fqn.MustParse("com.acme.a@1.0::IA"), stability.EnforceNone)
	require.NoError(t, err)

	for unit, calls := range frontend.calls {
		assert.Equal(t, 1, calls, unit)
	}
}

func TestEnforceHashes(t *testing.T) {
	files := map[string]string{
		"nfc/1.0/types.sidl": "types source\n",
		"nfc/1.0/INfc.sidl":  "interface source\n",
	}
	units := map[string]unitSpec{
		"com.acme.nfc@1.0::types": {},
		"com.acme.nfc@1.0::INfc":  {},
	}
	name := fqn.MustParse("com.acme.nfc@1.0::INfc")

	t.Run("no ledger passes", func(t *testing.T) {
		r, _, _ := newFixture(t, units, files)
		_, err := r.Parse(name, stability.EnforceHash)
		assert.NoError(t, err)
	})

	t.Run("matching digests pass", func(t *testing.T) {
		r, _, root := newFixture(t, units, files)
		ledger := stability.LedgerLine(stability.ComputeHash(files["nfc/1.0/types.sidl"]), fqn.MustParse("com.acme.nfc@1.0::types")) + "\n" +
			stability.LedgerLine(stability.ComputeHash(files["nfc/1.0/INfc.sidl"]), name) + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, "frozen.txt"), []byte(ledger), 0o644))

		_, err := r.Parse(name, stability.EnforceHash)
		assert.NoError(t, err)
	})

	t.Run("stale digest fails but is not cached as failure", func(t *testing.T) {
		r, _, root := newFixture(t, units, files)
		stale := stability.ComputeHash("frozen revision of the interface\n")
		ledger := stability.LedgerLine(stale, name) + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, "frozen.txt"), []byte(ledger), 0o644))

		_, err := r.Parse(name, stability.EnforceHash)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStabilityMismatch))

		// The ledger target re-parses frozen interfaces without hash
		// checking; the earlier mismatch must not stick.
		unit, err := r.Parse(name, stability.EnforceNoHash)
		require.NoError(t, err)
		assert.Equal(t, files["nfc/1.0/INfc.sidl"], unit.SourceText)
	})
}

func TestEnforceMinorVersionUprevs(t *testing.T) {
	files := map[string]string{
		"nfc/1.0/INfc.sidl": "v1.0\n",
		"nfc/1.2/INfc.sidl": "v1.2\n",
	}
	units := map[string]unitSpec{
		"com.acme.nfc@1.2::INfc": {},
		"com.acme.nfc@2.5::INfc": {},
	}

	t.Run("skipped minor version fails", func(t *testing.T) {
		r, _, _ := newFixture(t, units, files)
		_, err := r.Parse(fqn.MustParse("com.acme.nfc@1.2::INfc"), stability.EnforceNoHash)
		require.Error(t, err)
		assert.ErrorContains(t, err, "cannot skip a minor version")
	})

	t.Run("contiguous chain passes", func(t *testing.T) {
		contiguous := map[string]string{
			"nfc/1.0/INfc.sidl": "v1.0\n",
			"nfc/1.1/INfc.sidl": "v1.1\n",
			"nfc/1.2/INfc.sidl": "v1.2\n",
		}
		r, _, _ := newFixture(t, units, contiguous)
		_, err := r.Parse(fqn.MustParse("com.acme.nfc@1.2::INfc"), stability.EnforceNoHash)
		assert.NoError(t, err)
	})

	t.Run("first minor revision of a major passes", func(t *testing.T) {
		solo := map[string]string{"nfc/2.5/INfc.sidl": "v2.5\n"}
		r, _, _ := newFixture(t, units, solo)
		_, err := r.Parse(fqn.MustParse("com.acme.nfc@2.5::INfc"), stability.EnforceNoHash)
		assert.NoError(t, err)
	})
}
