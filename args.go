package datacube

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

func ParseSatellite(s string) (sat Satellite, err error) {
	for _, v := range Satellites {
		if strings.EqualFold(s, string(v)) {
			sat = v
			return
		}
	}
	err = argErr(s, "is not a supported satellite")
	return
}

// 解析数据类型，仅接受supported中的类型
func ParseDatasetType(s string, supported []DatasetType) (dt DatasetType, err error) {
	for _, v := range supported {
		if strings.EqualFold(s, string(v)) {
			dt = v
			return
		}
	}
	err = argErr(s, "is not a supported dataset type")
	return
}

func ParsePqaMask(s string) (m PqaMask, err error) {
	for _, v := range PqaMasks {
		if strings.EqualFold(s, v.String()) {
			m = v
			return
		}
	}
	err = argErr(s, "is not a supported PQA mask")
	return
}

func ParseWofsMask(s string) (m WofsMask, err error) {
	for _, v := range WofsMasks {
		if strings.EqualFold(s, v.String()) {
			m = v
			return
		}
	}
	err = argErr(s, "is not a supported WOFS mask")
	return
}

func ParseOutputFormat(s string) (f OutputFormat, err error) {
	for _, v := range OutputFormats {
		if strings.EqualFold(s, string(v)) {
			f = v
			return
		}
	}
	err = argErr(s, "is not a supported output format")
	return
}

func ParseStatistic(s string) (st Statistic, err error) {
	for _, v := range Statistics {
		if strings.EqualFold(s, string(v)) {
			st = v
			return
		}
	}
	err = argErr(s, "is not a supported statistic")
	return
}

// 月份可用英文全称或缩写
func ParseMonth(s string) (m time.Month, err error) {
	for i := time.January; i <= time.December; i++ {
		name := i.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			m = i
			return
		}
	}
	err = argErr(s, "is not a supported month")
	return
}

func ParseSeason(s string) (season Season, err error) {
	for _, v := range Seasons {
		if strings.EqualFold(s, string(v)) {
			season = v
			return
		}
	}
	err = argErr(s, "is not a supported season")
	return
}

// 检查整数是否在[lo, hi]范围内
func CheckRange(v, lo, hi int) (err error) {
	if v < lo || v > hi {
		err = argErr(strconv.Itoa(v), fmt.Sprintf("is not in range [%d - %d]", lo, hi))
	}
	return
}

func checkDir(path string) (err error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return argErr(path, "doesn't exist")
		}
		return argErr(path, "is not accessible")
	}
	if !fi.IsDir() {
		return argErr(path, "is not a directory")
	}
	return
}

// 目录须存在且可写
func WriteableDir(path string) (err error) {
	if err = checkDir(path); err != nil {
		return
	}
	f, e := os.CreateTemp(path, ".wtest")
	if e != nil {
		return argErr(path, "is not writeable")
	}
	f.Close()
	os.Remove(f.Name())
	return
}

// 目录须存在且可读
func ReadableDir(path string) (err error) {
	if err = checkDir(path); err != nil {
		return
	}
	if _, e := os.ReadDir(path); e != nil {
		return argErr(path, "is not readable")
	}
	return
}

// 文件须存在且可读
func ReadableFile(path string) (err error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return argErr(path, "doesn't exist")
		}
		return argErr(path, "is not accessible")
	}
	if fi.IsDir() {
		return argErr(path, "is not a file")
	}
	f, e := os.Open(path)
	if e != nil {
		return argErr(path, "is not readable")
	}
	f.Close()
	return
}

func ParseDate(s string) (t time.Time, err error) {
	if s == "" {
		return
	}
	t, e := time.Parse(DATE_FORMAT, s)
	if e != nil {
		err = argErr(s, "is not a valid date")
	}
	return
}

// 支持YYYY、YYYY-MM、YYYY-MM-DD，取区间起始日
func ParseDateMin(s string) (t time.Time, err error) {
	return parseDateBound(s, false)
}

// 支持YYYY、YYYY-MM、YYYY-MM-DD，年、月精度时取年末或月末
func ParseDateMax(s string) (t time.Time, err error) {
	return parseDateBound(s, true)
}

func parseDateBound(s string, max bool) (t time.Time, err error) {
	if s == "" {
		return
	}
	var e error
	switch strings.Count(s, "-") {
	case 0:
		if t, e = time.Parse("2006", s); e == nil && max {
			t = t.AddDate(1, 0, -1)
		}
	case 1:
		if t, e = time.Parse("2006-01", s); e == nil && max {
			t = t.AddDate(0, 1, -1)
		}
	case 2:
		t, e = time.Parse(DATE_FORMAT, s)
	default:
		e = errors.New("bad date")
	}
	if e != nil {
		t = time.Time{}
		err = argErr(s, "is not a valid date")
	}
	return
}
