package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprintOf(t *testing.T, in Input) string {
	t.Helper()
	m, err := Build(in)
	require.NoError(t, err)
	fp, err := Fingerprint(m)
	require.NoError(t, err)
	return fp
}

func TestFingerprintDeterministic(t *testing.T) {
	first := fingerprintOf(t, validInput())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, fingerprintOf(t, validInput()))
	}
	assert.Regexp(t, `^[0-9a-f]{64}$`, first)
}

func TestFingerprintIgnoresDeclarationOrder(t *testing.T) {
	base := validInput()

	reordered := validInput()
	reordered.Versions[0], reordered.Versions[1] = reordered.Versions[1], reordered.Versions[0]
	reordered.Interfaces[0], reordered.Interfaces[1] = reordered.Interfaces[1], reordered.Interfaces[0]

	assert.Equal(t, fingerprintOf(t, base), fingerprintOf(t, reordered))
}

func TestFingerprintSensitivity(t *testing.T) {
	base := fingerprintOf(t, validInput())

	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"name", func(in *Input) { in.Name = "Token2" }},
		{"current", func(in *Input) { in.Current = "v3"; in.Versions = append(in.Versions, VersionDecl{Version: "v3"}) }},
		{"selector", func(in *Input) { in.Functions[0].Selector = "0xa9059cbc" }},
		{"slot type", func(in *Input) { in.Versions[0].Storage[0].Type = "address" }},
		{"binding", func(in *Input) { in.Bindings["transfer"] = "im_other" }},
		{"dependency version", func(in *Input) { in.DependsOn[0].Version = "v2" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			assert.NotEqual(t, base, fingerprintOf(t, in))
		})
	}
}
