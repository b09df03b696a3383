package datacube

const (
	BAND_COASTAL_AEROSOL       = "COASTAL_AEROSOL"
	BAND_BLUE                  = "BLUE"
	BAND_GREEN                 = "GREEN"
	BAND_RED                   = "RED"
	BAND_NEAR_INFRARED         = "NEAR_INFRARED"
	BAND_SHORT_WAVE_INFRARED_1 = "SHORT_WAVE_INFRARED_1"
	BAND_SHORT_WAVE_INFRARED_2 = "SHORT_WAVE_INFRARED_2"

	BAND_PQ = "PQ"

	BAND_PHOTOSYNTHETIC_VEGETATION     = "PHOTOSYNTHETIC_VEGETATION"
	BAND_NON_PHOTOSYNTHETIC_VEGETATION = "NON_PHOTOSYNTHETIC_VEGETATION"
	BAND_BARE_SOIL                     = "BARE_SOIL"
	BAND_UNMIXING_ERROR                = "UNMIXING_ERROR"

	BAND_WATER = "WATER"
)

var (
	tmBands = []string{
		BAND_BLUE, BAND_GREEN, BAND_RED, BAND_NEAR_INFRARED,
		BAND_SHORT_WAVE_INFRARED_1, BAND_SHORT_WAVE_INFRARED_2,
	}
	oliBands = append([]string{BAND_COASTAL_AEROSOL}, tmBands...)
	fcBands  = []string{
		BAND_PHOTOSYNTHETIC_VEGETATION, BAND_NON_PHOTOSYNTHETIC_VEGETATION,
		BAND_BARE_SOIL, BAND_UNMIXING_ERROR,
	}
)

// 指定数据类型与卫星下的波段名（按栅格波段顺序）
func BandNames(dt DatasetType, sat Satellite) []string {
	switch dt {
	case ARG25:
		if sat == LS8 {
			return oliBands
		}
		return tmBands
	case PQ25:
		return []string{BAND_PQ}
	case FC25:
		return fcBands
	case WATER:
		return []string{BAND_WATER}
	case NDVI, EVI, NBR:
		return []string{string(dt)}
	}
	return nil
}

// 指定数据类型与卫星下的波段（含1起始序号）
func GetBands(dt DatasetType, sat Satellite) (bands []Band) {
	names := BandNames(dt, sat)
	bands = make([]Band, len(names))
	for i, n := range names {
		bands[i] = Band{Name: n, Index: i + 1}
	}
	return
}

// 多颗卫星的波段并集，保持首次出现的顺序
func BandNameUnion(dt DatasetType, sats ...Satellite) (names []string) {
	seen := map[string]bool{}
	for _, sat := range sats {
		for _, n := range BandNames(dt, sat) {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return
}

// 多颗卫星的波段交集，按第一颗卫星的波段顺序
func BandNameIntersection(dt DatasetType, sats ...Satellite) (names []string) {
	if len(sats) == 0 {
		return
	}
	for _, n := range BandNames(dt, sats[0]) {
		all := true
		for _, sat := range sats[1:] {
			if !containsName(BandNames(dt, sat), n) {
				all = false
				break
			}
		}
		if all {
			names = append(names, n)
		}
	}
	return
}

// 按波段列表类型确定要处理的波段
func ResolveBandNames(dt DatasetType, blt BandListType, explicit []string, sats ...Satellite) []string {
	switch blt {
	case BandsCommon:
		return BandNameIntersection(dt, sats...)
	case BandsExplicit:
		return explicit
	}
	return BandNameUnion(dt, sats...)
}

func containsName(names []string, n string) bool {
	for _, v := range names {
		if v == n {
			return true
		}
	}
	return false
}
