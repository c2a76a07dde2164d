package InputParameters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/netgenplugin/types"
)

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, Format_Simple2D, DetectFormat("/work/hyp_simple2D.txt"))
	assert.Equal(t, Format_Simple3D, DetectFormat("simple3D_param"))
	assert.Equal(t, Format_MaxArea, DetectFormat("/tmp/maxarea_1.txt"))
	assert.Equal(t, Format_LengthFromEdges, DetectFormat("/tmp/lenghtfromedge.txt"))
	assert.Equal(t, Format_LengthFromEdges, DetectFormat("/tmp/lengthfromedges.txt"))
	assert.Equal(t, Format_Hypothesis, DetectFormat("/tmp/simple2D/box_param.txt"))

	ft, ok := ParseFormatTag("maxarea")
	assert.True(t, ok)
	assert.Equal(t, Format_MaxArea, ft)
	assert.Equal(t, "simple3D", Format_Simple3D.String())
}

func TestImportSimple(t *testing.T) {
	{
		p, err := ImportAuto(writeFile(t, "hyp_simple2D.txt", "5\n0.5\n2.25\n1\n"))
		require.NoError(t, err)
		assert.False(t, p.HasNetgenParam)
		assert.Equal(t, Format_Simple2D, p.Format)
		require.NotNil(t, p.Simple)
		assert.Equal(t, SimpleParams{NumberOfSegments: 5, LocalLength: 0.5, MaxElementArea: 2.25,
			AllowQuadrangles: true}, *p.Simple)
		assert.True(t, p.HasMaxElementVolumeHyp)
		assert.Equal(t, 2.25, p.MaxElementVolume)
		assert.Equal(t, 1, p.Quad)
	}
	{
		p, err := ImportAuto(writeFile(t, "hyp_simple3D.txt", "0\n1.5\n0\n8\n0\n"))
		require.NoError(t, err)
		assert.False(t, p.HasNetgenParam)
		assert.Equal(t, 8.0, p.Simple.MaxElementVolume)
		assert.True(t, p.HasMaxElementVolumeHyp)
		assert.Equal(t, 8.0, p.MaxElementVolume)
		assert.Equal(t, 0, p.Quad)
	}
	{ // Truncated simple record
		_, err := ImportTagged(writeFile(t, "s.txt", "5\n0.5\n"), Format_Simple3D)
		var fe *types.FormatError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "maxElementArea", fe.Field)
	}
}

func TestImportMaxAreaAndLength(t *testing.T) {
	p, err := ImportAuto(writeFile(t, "maxarea.txt", "1\n0.75\n"))
	require.NoError(t, err)
	assert.True(t, p.HasMaxElementVolumeHyp)
	assert.Equal(t, 0.75, p.MaxElementVolume)
	assert.False(t, p.HasNetgenParam)

	p, err = ImportAuto(writeFile(t, "maxarea_off.txt", "0\n"))
	require.NoError(t, err)
	assert.False(t, p.HasMaxElementVolumeHyp)

	_, err = ImportAuto(writeFile(t, "maxarea_bad.txt", "1\n"))
	var fe *types.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "maxArea", fe.Field)

	p, err = ImportAuto(writeFile(t, "lenghtfromedge.txt", ""))
	require.NoError(t, err)
	assert.True(t, p.HasLengthFromEdgesHyp)
	assert.False(t, p.HasNetgenParam)
}
