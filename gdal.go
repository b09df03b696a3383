package datacube

import (
	"os"
	"strconv"
	"sync"

	"github.com/wgdzlh/datacube/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

type Toolbox struct {
	refMap map[int]*gdal.SpatialRef
	rLock  sync.Mutex
	logTag string
}

// 由GDAL库C语言创建的对象，需要手动调用Close回收
type closable interface {
	Close()
}

type ToolboxOption func(*Toolbox)

// GDAL块缓存大小（MB）
func WithCacheMax(mb int) ToolboxOption {
	return func(g *Toolbox) {
		if mb > 0 {
			os.Setenv("GDAL_CACHEMAX", strconv.Itoa(mb))
		}
	}
}

var gdalOnce sync.Once

func initGdal() {
	// 须在注册驱动前设置
	setDefaultEnv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
	setDefaultEnv("GDAL_MAX_DATASET_POOL_SIZE", "10")
	setDefaultEnv("GDAL_CACHEMAX", "500")
	gdal.RegisterAll()
}

func setDefaultEnv(envVar, defaultVal string) {
	if os.Getenv(envVar) == "" {
		os.Setenv(envVar, defaultVal)
	}
}

// 初始化GDAL工具箱
func NewToolbox(opts ...ToolboxOption) *Toolbox {
	g := &Toolbox{
		refMap: map[int]*gdal.SpatialRef{},
		logTag: "Toolbox:",
	}
	for _, o := range opts {
		o(g)
	}
	gdalOnce.Do(initGdal)
	return g
}

// 获取srid对应的坐标系（可复用，故无需回收）
// godal创建的坐标系已使用传统GIS轴序(经度,纬度)
func (g *Toolbox) getSridRef(srid int) (ref *gdal.SpatialRef, err error) {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	ref, ok := g.refMap[srid]
	if ok {
		return
	}
	if ref, err = gdal.NewSpatialRefFromEPSG(srid); err != nil {
		log.Error(g.logTag+"set ref srid failed", zap.Int("srid", srid), zap.Error(err))
		return
	}
	g.refMap[srid] = ref
	return
}

// 回收缓存的坐标系
func (g *Toolbox) Close() {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	for srid, ref := range g.refMap {
		ref.Close()
		delete(g.refMap, srid)
	}
}

// srid对应坐标系的WKT
func (g *Toolbox) SridWKT(srid int) (wkt string, err error) {
	ref, err := g.getSridRef(srid)
	if err != nil {
		return
	}
	return ref.WKT()
}
