package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidl-dev/sidlgen/fqn"
)

func TestImportedPackagesExcludesOwnPackage(t *testing.T) {
	unit := &Unit{
		FQName: fqn.MustParse("com.acme.nfc@1.0::INfc"),
		Imports: []fqn.FQName{
			fqn.MustParse("com.acme.nfc@1.0::types"), // same package
			fqn.MustParse("com.acme.shared@1.0::types"),
			fqn.MustParse("com.acme.shared@1.0::IStream"), // same dependency twice
			fqn.MustParse("com.acme.access@2.1"),
		},
	}

	got := unit.ImportedPackages()

	require.Len(t, got, 2)
	assert.Equal(t, "com.acme.shared@1.0", got[0].String())
	assert.Equal(t, "com.acme.access@2.1", got[1].String())
}

func TestImportedPackagesDistinguishesVersions(t *testing.T) {
	// The same package at another version is a separate dependency.
	unit := &Unit{
		FQName: fqn.MustParse("com.acme.nfc@1.1::INfc"),
		Imports: []fqn.FQName{
			fqn.MustParse("com.acme.nfc@1.0::INfc"),
		},
	}

	got := unit.ImportedPackages()
	require.Len(t, got, 1)
	assert.Equal(t, "com.acme.nfc@1.0", got[0].String())
}

func TestExportedTypes(t *testing.T) {
	unit := &Unit{
		Declared: []TypeDecl{
			{Name: "Handle", Kind: KindTypedef},
			{Name: "NfcEvent", Kind: KindEnum, Exported: true},
			{Name: "Session", Kind: KindStruct},
		},
	}

	exported := unit.ExportedTypes()
	require.Len(t, exported, 1)
	assert.Equal(t, "NfcEvent", exported[0].Name)
}

func TestHasNonTypedefDecl(t *testing.T) {
	aliasesOnly := &Unit{Declared: []TypeDecl{
		{Name: "A", Kind: KindTypedef},
		{Name: "B", Kind: KindTypedef},
	}}
	assert.False(t, aliasesOnly.HasNonTypedefDecl())

	mixed := &Unit{Declared: []TypeDecl{
		{Name: "A", Kind: KindTypedef},
		{Name: "E", Kind: KindBitmask},
	}}
	assert.True(t, mixed.HasNonTypedefDecl())

	empty := &Unit{}
	assert.False(t, empty.HasNonTypedefDecl())
}
