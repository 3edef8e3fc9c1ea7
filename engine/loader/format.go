package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned when neither the content nor the name identify a format
// the loader can decode.
var ErrUnsupportedFormat = errors.New("unsupported texture format")

// Format is an image container the loader decodes.
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatJPEG
	FormatGIF
	FormatBMP
	FormatTIFF
	FormatWebP
)

// decoder turns encoded bytes into an image for one Format.
type decoder struct {
	mime   string
	decode func(io.Reader) (image.Image, error)
}

var decoders = map[Format]decoder{
	FormatPNG:  {"image/png", png.Decode},
	FormatJPEG: {"image/jpeg", jpeg.Decode},
	FormatGIF:  {"image/gif", gif.Decode},
	FormatBMP:  {"image/bmp", bmp.Decode},
	FormatTIFF: {"image/tiff", tiff.Decode},
	FormatWebP: {"image/webp", webp.Decode},
}

var byMIME = map[string]Format{
	"image/png":  FormatPNG,
	"image/jpeg": FormatJPEG,
	"image/gif":  FormatGIF,
	"image/bmp":  FormatBMP,
	"image/tiff": FormatTIFF,
	"image/webp": FormatWebP,
}

var byExtension = map[string]Format{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".gif":  FormatGIF,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".webp": FormatWebP,
}

func (f Format) String() string {
	if d, ok := decoders[f]; ok {
		return d.mime
	}
	return "unknown"
}

// DetectFormat identifies the container of data by its magic bytes and falls back to the
// extension of name when the content is not recognized.
//
// Parameters:
//   - name: the texture name or file path
//   - data: the encoded bytes
//
// Returns:
//   - Format: the detected format
//   - error: ErrUnsupportedFormat when nothing matches
func DetectFormat(name string, data []byte) (Format, error) {
	if kind, err := filetype.Image(data); err == nil && kind != filetype.Unknown {
		if f, ok := byMIME[kind.MIME.Value]; ok {
			return f, nil
		}
	}
	if f, ok := byExtension[strings.ToLower(filepath.Ext(name))]; ok {
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
}

// decodeImage detects the format of data and decodes it.
func decodeImage(name string, data []byte) (image.Image, Format, error) {
	f, err := DetectFormat(name, data)
	if err != nil {
		return nil, FormatUnknown, err
	}
	img, err := decoders[f].decode(bytes.NewReader(data))
	if err != nil {
		return nil, f, fmt.Errorf("decode %s as %s: %w", name, f, err)
	}
	return img, f, nil
}
