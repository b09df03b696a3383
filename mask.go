package datacube

import (
	"strings"
)

// 像元质量（PQA）掩膜位
type PqaMask uint16

const (
	PQ_MASK_CLEAR              PqaMask = 16383
	PQ_MASK_SATURATION         PqaMask = 255
	PQ_MASK_SATURATION_OPTICAL PqaMask = 159
	PQ_MASK_SATURATION_THERMAL PqaMask = 96
	PQ_MASK_CONTIGUITY         PqaMask = 256
	PQ_MASK_LAND               PqaMask = 512
	PQ_MASK_CLOUD              PqaMask = 15360
	PQ_MASK_CLOUD_ACCA         PqaMask = 1024
	PQ_MASK_CLOUD_FMASK        PqaMask = 2048
	PQ_MASK_CLOUD_SHADOW_ACCA  PqaMask = 4096
	PQ_MASK_CLOUD_SHADOW_FMASK PqaMask = 8192
)

var (
	PqaMasks = []PqaMask{
		PQ_MASK_CLEAR, PQ_MASK_SATURATION, PQ_MASK_SATURATION_OPTICAL, PQ_MASK_SATURATION_THERMAL,
		PQ_MASK_CONTIGUITY, PQ_MASK_LAND, PQ_MASK_CLOUD, PQ_MASK_CLOUD_ACCA, PQ_MASK_CLOUD_FMASK,
		PQ_MASK_CLOUD_SHADOW_ACCA, PQ_MASK_CLOUD_SHADOW_FMASK,
	}
	pqaMaskNames = map[PqaMask]string{
		PQ_MASK_CLEAR:              "PQ_MASK_CLEAR",
		PQ_MASK_SATURATION:         "PQ_MASK_SATURATION",
		PQ_MASK_SATURATION_OPTICAL: "PQ_MASK_SATURATION_OPTICAL",
		PQ_MASK_SATURATION_THERMAL: "PQ_MASK_SATURATION_THERMAL",
		PQ_MASK_CONTIGUITY:         "PQ_MASK_CONTIGUITY",
		PQ_MASK_LAND:               "PQ_MASK_LAND",
		PQ_MASK_CLOUD:              "PQ_MASK_CLOUD",
		PQ_MASK_CLOUD_ACCA:         "PQ_MASK_CLOUD_ACCA",
		PQ_MASK_CLOUD_FMASK:        "PQ_MASK_CLOUD_FMASK",
		PQ_MASK_CLOUD_SHADOW_ACCA:  "PQ_MASK_CLOUD_SHADOW_ACCA",
		PQ_MASK_CLOUD_SHADOW_FMASK: "PQ_MASK_CLOUD_SHADOW_FMASK",
	}
)

func (m PqaMask) String() string {
	return pqaMaskNames[m]
}

// 水体观测（WOFS）分类值
type WofsMask uint8

const (
	WOFS_DRY                   WofsMask = 0
	WOFS_NO_DATA               WofsMask = 1
	WOFS_SATURATION_CONTIGUITY WofsMask = 2
	WOFS_SEA_WATER             WofsMask = 4
	WOFS_TERRAIN_SHADOW        WofsMask = 8
	WOFS_HIGH_SLOPE            WofsMask = 16
	WOFS_CLOUD_SHADOW          WofsMask = 32
	WOFS_CLOUD                 WofsMask = 64
	WOFS_WET                   WofsMask = 128
)

var (
	WofsMasks = []WofsMask{
		WOFS_DRY, WOFS_NO_DATA, WOFS_SATURATION_CONTIGUITY, WOFS_SEA_WATER, WOFS_TERRAIN_SHADOW,
		WOFS_HIGH_SLOPE, WOFS_CLOUD_SHADOW, WOFS_CLOUD, WOFS_WET,
	}
	wofsMaskNames = map[WofsMask]string{
		WOFS_DRY:                   "DRY",
		WOFS_NO_DATA:               "NO_DATA",
		WOFS_SATURATION_CONTIGUITY: "SATURATION_CONTIGUITY",
		WOFS_SEA_WATER:             "SEA_WATER",
		WOFS_TERRAIN_SHADOW:        "TERRAIN_SHADOW",
		WOFS_HIGH_SLOPE:            "HIGH_SLOPE",
		WOFS_CLOUD_SHADOW:          "CLOUD_SHADOW",
		WOFS_CLOUD:                 "CLOUD",
		WOFS_WET:                   "WET",
	}
)

func (m WofsMask) String() string {
	return wofsMaskNames[m]
}

func PqaMaskNames(masks []PqaMask) string {
	names := make([]string, len(masks))
	for i, m := range masks {
		names[i] = m.String()
	}
	return strings.Join(names, " ")
}

func WofsMaskNames(masks []WofsMask) string {
	names := make([]string, len(masks))
	for i, m := range masks {
		names[i] = m.String()
	}
	return strings.Join(names, " ")
}

// 掩膜按行优先排列，true表示该像元被掩去
type Mask []bool

// 复制base作为新掩膜的起点，base为nil时生成全false掩膜
func newMask(base Mask, n int) (mask Mask, err error) {
	if base == nil {
		mask = make(Mask, n)
		return
	}
	if len(base) != n {
		err = ErrMaskShape
		return
	}
	mask = make(Mask, n)
	copy(mask, base)
	return
}

// 任一所选掩膜位未全部置位的像元被掩去
func MaskPqa(pqa []uint16, masks []PqaMask, base Mask) (mask Mask, err error) {
	if mask, err = newMask(base, len(pqa)); err != nil {
		return
	}
	for _, m := range masks {
		bits := uint16(m)
		for i, v := range pqa {
			if v&bits != bits {
				mask[i] = true
			}
		}
	}
	return
}

// 与任一所选分类值不相等的像元被掩去
func MaskWofs(wofs []uint8, masks []WofsMask, base Mask) (mask Mask, err error) {
	if mask, err = newMask(base, len(wofs)); err != nil {
		return
	}
	for _, m := range masks {
		val := uint8(m)
		for i, v := range wofs {
			if v != val {
				mask[i] = true
			}
		}
	}
	return
}

// 未被矢量面覆盖（烧录值不为1）的像元被掩去
func MaskVector(burn []uint8, base Mask) (mask Mask, err error) {
	if mask, err = newMask(base, len(burn)); err != nil {
		return
	}
	for i, v := range burn {
		if v != 1 {
			mask[i] = true
		}
	}
	return
}

// 将掩去的像元设为无效值
func ApplyMask(data []float64, mask Mask, ndv float64) (err error) {
	if mask == nil {
		return
	}
	if len(mask) != len(data) {
		err = ErrMaskShape
		return
	}
	for i, m := range mask {
		if m {
			data[i] = ndv
		}
	}
	return
}

func (m Mask) Clone() Mask {
	if m == nil {
		return nil
	}
	c := make(Mask, len(m))
	copy(c, m)
	return c
}

func (m Mask) Count() (n int) {
	for _, v := range m {
		if v {
			n++
		}
	}
	return
}
