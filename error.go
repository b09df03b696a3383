package datacube

import (
	"errors"
	"fmt"
)

var (
	ErrOutputExists    = errors.New("output file already exists")
	ErrUnknownBand     = errors.New("unknown band")
	ErrMaskShape       = errors.New("mask shape mismatch")
	ErrInvalidTif      = errors.New("invalid raster")
	ErrTifReadFailed   = errors.New("raster read failed")
	ErrTifWriteFailed  = errors.New("raster write failed")
	ErrBandCount       = errors.New("band count mismatch")
	ErrLayerNotFound   = errors.New("vector layer not found")
	ErrFeatureNotFound = errors.New("vector feature not found")
	ErrEmptyGeometry   = errors.New("vector feature has no geometry")
	ErrBandsNotPresent = errors.New("not all bands present for all satellites")
)

// 命令行参数错误
type ArgumentError struct {
	Arg    string
	Value  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("%s %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("argument %s: %s %s", e.Arg, e.Value, e.Reason)
}

func argErr(value, reason string) *ArgumentError {
	return &ArgumentError{Value: value, Reason: reason}
}

// 为参数错误补充参数名
func WithArg(err error, arg string) error {
	var ae *ArgumentError
	if errors.As(err, &ae) {
		c := *ae
		c.Arg = arg
		return &c
	}
	return err
}
