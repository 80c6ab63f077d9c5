package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/aura/internal/aura/palette"
	"github.com/banshee-data/aura/internal/aura/params"
	"github.com/banshee-data/aura/internal/aura/render"
)

func TestKeyPatch(t *testing.T) {
	cur := params.Default()

	patch, ok := keyPatch('3', cur)
	require.True(t, ok)
	require.NotNil(t, patch.Emotion)
	assert.Equal(t, params.EmotionExpansive, *patch.Emotion)

	patch, ok = keyPatch('T', cur)
	require.True(t, ok)
	assert.Equal(t, cur.Temperature+1, *patch.Temperature)

	patch, ok = keyPatch('h', cur)
	require.True(t, ok)
	assert.Equal(t, cur.HeartRate-10, *patch.HeartRate)

	_, ok = keyPatch('z', cur)
	assert.False(t, ok)
}

func TestKeyPatch_Cycles(t *testing.T) {
	cur := params.Default()
	seen := map[params.Posture]bool{}
	for i := 0; i < len(postureCycle); i++ {
		patch, ok := keyPatch('p', cur)
		require.True(t, ok)
		cur, _ = params.Merge(cur, patch)
		seen[cur.Posture] = true
	}
	assert.Len(t, seen, len(postureCycle))
	assert.Equal(t, params.PostureUpright, cur.Posture)

	cur.Proximity = params.ProximityIsolated
	patch, _ := keyPatch('x', cur)
	assert.Equal(t, params.ProximityClose, *patch.Proximity, "unknown labels restart the cycle")
}

func TestCellColor(t *testing.T) {
	assert.Equal(t, tcell.NewRGBColor(0, 0, 0), cellColor(palette.RGB{}))
	assert.Equal(t, tcell.NewRGBColor(255, 0, 255), cellColor(palette.RGB{R: 2, G: -1, B: 1}))
}

func TestRemoteSource_StoreRefcount(t *testing.T) {
	s := &remoteSource{}
	first := render.NewPointCloud(4)
	s.store(first)

	got := s.Latest()
	require.Same(t, first, got)
	got.Release()
	assert.Equal(t, 4, first.PointCount, "frame must survive while stored")

	s.store(render.NewPointCloud(2))
	assert.Equal(t, 0, first.PointCount, "replaced frame is released")

	latest := s.Latest()
	assert.Equal(t, 2, latest.PointCount)
	latest.Release()
}
