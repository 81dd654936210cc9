package potential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odonata-labs/aatorus/internal/units"
)

func TestParseGalaxyDefinition(t *testing.T) {
	def, err := ParseGalaxyDefinition(strings.NewReader(defaultGalaxyDef))
	require.NoError(t, err)
	require.Len(t, def.Disks, 3)
	require.Len(t, def.Spheroids, 2)

	assert.InDelta(t, 5.63482e8, def.Disks[0].SurfaceDensity, 1)
	assert.InDelta(t, 2.6771, def.Disks[0].ScaleLength, 1e-9)
	assert.InDelta(t, 0.1974, def.Disks[0].ScaleHeight, 1e-9)

	halo := def.Spheroids[1]
	assert.InDelta(t, 1.0, halo.InnerSlope, 1e-9)
	assert.InDelta(t, 3.0, halo.OuterSlope, 1e-9)
	assert.InDelta(t, 14.2825, halo.Scale, 1e-9)
}

func TestParseGalaxyDefinitionErrors(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"bad count":          "two\n",
		"truncated disks":    "2\n1e8 3 0.3 0 0\n",
		"non numeric":        "1\n1e8 x 0.3 0 0\n0\n",
		"negative scale":     "1\n1e8 -3 0.3 0 0\n0\n",
		"short spheroid row": "0\n1\n1e7 1 1\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGalaxyDefinition(strings.NewReader(input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadDefinition)
		})
	}
}

func TestBuildGalaxyComponents(t *testing.T) {
	def, err := ParseGalaxyDefinition(strings.NewReader(defaultGalaxyDef))
	require.NoError(t, err)

	pot := BuildGalaxy(def, units.Galactic())
	comp, ok := pot.(Composite)
	require.True(t, ok, "expected a composite potential")
	require.Len(t, comp, 5)

	// halo row has (gamma, beta) = (1, 3): must map to NFW
	_, isNFW := comp[4].(NFW)
	assert.True(t, isNFW, "outer spheroid should become an NFW halo")

	// bulge row has beta < 3: must map to a truncated-mass Plummer
	_, isPlummer := comp[3].(Plummer)
	assert.True(t, isPlummer, "inner spheroid should become a Plummer sphere")
}
