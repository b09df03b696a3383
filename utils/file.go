package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
)

// 在目标文件同目录下生成唯一的临时文件路径，写完后再rename为目标文件
func GetTmpPath(target string) string {
	dir, name := filepath.Split(target)
	return filepath.Join(dir, "."+uuid.NewString()+"_"+name)
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 根据同名.cpg文件判断shp属性编码是否为UTF-8，无.cpg时视为GBK
func IsShpUtf8(shp string) (utf8 bool) {
	if !strings.EqualFold(filepath.Ext(shp), FILE_EXT_SHP) {
		return true
	}
	enc, err := os.ReadFile(strings.TrimSuffix(shp, filepath.Ext(shp)) + FILE_EXT_CPG)
	if err != nil || len(enc) == 0 {
		return
	}
	encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
	utf8 = encStr == UTF_8 || encStr == UTF8
	return
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// 原子写入：写入临时文件后rename
func WriteFileAtomic(path string, data []byte) (err error) {
	tmp := GetTmpPath(path)
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
	}
	return
}
