package datacube

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskPqa(t *testing.T) {
	pqa := []uint16{16383, 16383 &^ 1024, 0, 256 | 512}
	mask, err := MaskPqa(pqa, []PqaMask{PQ_MASK_CLEAR}, nil)
	require.NoError(t, err)
	assert.Equal(t, Mask{false, true, true, true}, mask)

	mask, err = MaskPqa(pqa, []PqaMask{PQ_MASK_CONTIGUITY, PQ_MASK_LAND}, nil)
	require.NoError(t, err)
	assert.Equal(t, Mask{false, false, true, false}, mask)

	_, err = MaskPqa(pqa, []PqaMask{PQ_MASK_CLEAR}, Mask{false})
	assert.ErrorIs(t, err, ErrMaskShape)
}

func TestMaskWofsAndBase(t *testing.T) {
	base := Mask{true, false, false, false}
	wofs := []uint8{128, 128, 0, 1}
	mask, err := MaskWofs(wofs, []WofsMask{WOFS_WET}, base)
	require.NoError(t, err)
	assert.Equal(t, Mask{true, false, true, true}, mask)
	assert.Equal(t, Mask{true, false, false, false}, base, "base must not change")

	// several values: a pixel must equal every selected value to be kept
	mask, err = MaskWofs(wofs, []WofsMask{WOFS_WET, WOFS_DRY}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, mask.Count())
}

func TestMaskVectorAndApply(t *testing.T) {
	mask, err := MaskVector([]uint8{1, 0, 1, 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, Mask{false, true, false, true}, mask)

	data := []float64{1, 2, 3, 4}
	require.NoError(t, ApplyMask(data, mask, -999))
	assert.Equal(t, []float64{1, -999, 3, -999}, data)

	data = []float64{1, 2, 3, 4}
	require.NoError(t, ApplyMask(data, mask, math.NaN()))
	assert.True(t, math.IsNaN(data[1]))
	assert.Equal(t, 3.0, data[2])

	require.NoError(t, ApplyMask(data, nil, 0))
	assert.ErrorIs(t, ApplyMask(data[:3], mask, 0), ErrMaskShape)
}

func TestMaskClone(t *testing.T) {
	// 3x3, centre column masked
	m := Mask{
		false, true, false,
		false, true, false,
		false, true, false,
	}
	c := m.Clone()
	c[0] = true
	assert.False(t, m[0])
	assert.Equal(t, 3, m.Count())
	assert.Nil(t, Mask(nil).Clone())
}

func TestMaskNames(t *testing.T) {
	assert.Equal(t, "PQ_MASK_CLEAR PQ_MASK_CLOUD", PqaMaskNames([]PqaMask{PQ_MASK_CLEAR, PQ_MASK_CLOUD}))
	assert.Equal(t, "WET DRY", WofsMaskNames([]WofsMask{WOFS_WET, WOFS_DRY}))
	assert.Empty(t, PqaMaskNames(nil))
}
