// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
	"image/draw"
)

// Color is a linear RGBA color with float components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// TextureFormat identifies the pixel layout of decoded texture data.
type TextureFormat int

const (
	// TextureFormatRGBA8 is 4 bytes per pixel, 8 bits per channel, sRGB encoded.
	TextureFormatRGBA8 TextureFormat = iota

	// TextureFormatRGBA8Linear is 4 bytes per pixel, 8 bits per channel, linear encoded.
	TextureFormatRGBA8Linear
)

// TextureData holds decoded pixel data ready for upload through a device texture factory.
type TextureData struct {
	// Name identifies the texture (usually the source file name).
	Name string

	// MimeType is the detected source format (e.g. "image/png").
	MimeType string

	// Format is the layout of Pixels.
	Format TextureFormat

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// Pixels holds the tightly packed pixel rows (Width * 4 bytes per row).
	Pixels []byte
}

// BytesPerRow returns the stride of one row of pixels.
//
// Returns:
//   - uint32: the row stride in bytes
func (t *TextureData) BytesPerRow() uint32 {
	return t.Width * 4
}

// NewTextureData converts any decoded image into tightly packed RGBA8 texture data.
//
// Parameters:
//   - name: identifier for the texture
//   - mimeType: the source format the image was decoded from
//   - img: the decoded image
//
// Returns:
//   - *TextureData: the converted texture data
//   - error: an error if the image is empty
func NewTextureData(name, mimeType string, img image.Image) (*TextureData, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("texture %q has empty bounds", name)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return &TextureData{
		Name:     name,
		MimeType: mimeType,
		Format:   TextureFormatRGBA8,
		Width:    uint32(bounds.Dx()),
		Height:   uint32(bounds.Dy()),
		Pixels:   rgba.Pix,
	}, nil
}
