package utils

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func B2S(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

func ContainsAll(group, sub []string) bool {
out:
	for _, s := range sub {
		for _, a := range group {
			if a == s {
				continue out
			}
		}
		return false
	}
	return true
}

// GBK 转 UTF-8
func GbkToUtf8(s []byte) (d []byte, e error) {
	reader := transform.NewReader(bytes.NewReader(s), simplifiedchinese.GBK.NewDecoder())
	d, e = io.ReadAll(reader)
	return
}

// GBK string 转 UTF-8，已是合法UTF-8的原样返回
func GbkStrToUtf8(s string) (d string, e error) {
	if utf8.ValidString(s) {
		d = s
		return
	}
	t, e := GbkToUtf8([]byte(s))
	if e != nil {
		return
	}
	d = B2S(t)
	return
}

func PurifyForUtf8(s string) string {
	return strings.ToValidUTF8(strings.ReplaceAll(s, "\x00", ""), "")
}
