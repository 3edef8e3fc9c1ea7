package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io/fs"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := range 2 {
		for x := range 4 {
			img.Set(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 200), B: 10, A: 255})
		}
	}
	return img
}

func encode(t *testing.T, f Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = png.Encode(&buf, testImage())
	case FormatJPEG:
		err = jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: 100})
	case FormatGIF:
		err = gif.Encode(&buf, testImage(), nil)
	case FormatBMP:
		err = bmp.Encode(&buf, testImage())
	case FormatTIFF:
		err = tiff.Encode(&buf, testImage(), nil)
	default:
		t.Fatalf("no encoder for %v", f)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func TestLoadTextureDetectsByMagicBytes(t *testing.T) {
	cases := []struct {
		format Format
		mime   string
	}{
		{FormatPNG, "image/png"},
		{FormatJPEG, "image/jpeg"},
		{FormatGIF, "image/gif"},
		{FormatBMP, "image/bmp"},
		{FormatTIFF, "image/tiff"},
	}
	for _, tc := range cases {
		t.Run(tc.mime, func(t *testing.T) {
			data := encode(t, tc.format)

			// The name carries a misleading extension; content wins.
			f, err := DetectFormat("texture.webp", data)
			require.NoError(t, err)
			assert.Equal(t, tc.format, f)

			tex, err := LoadTexture("texture.webp", data)
			require.NoError(t, err)
			assert.Equal(t, tc.mime, tex.MimeType)
			assert.Equal(t, uint32(4), tex.Width)
			assert.Equal(t, uint32(2), tex.Height)
			assert.Len(t, tex.Pixels, 4*2*4)
			assert.Equal(t, common.TextureFormatRGBA8, tex.Format)
		})
	}
}

func TestDetectFormatFallsBackToExtension(t *testing.T) {
	f, err := DetectFormat("albedo.PNG", []byte("not an image"))
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	_, err = LoadTexture("albedo.png", []byte("not an image"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadTextureUnsupported(t *testing.T) {
	_, err := LoadTexture("notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = DetectFormat("", nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "unknown", FormatUnknown.String())
}

func memFS(t *testing.T, reads *atomic.Int32, files map[string][]byte) LoaderBuilderOption {
	t.Helper()
	return WithReadFile(func(path string) ([]byte, error) {
		reads.Add(1)
		data, ok := files[path]
		if !ok {
			return nil, fs.ErrNotExist
		}
		return data, nil
	})
}

func TestLoaderCachesByName(t *testing.T) {
	var reads atomic.Int32
	l := NewLoader(memFS(t, &reads, map[string][]byte{"a.png": encode(t, FormatPNG)}))

	first, err := l.LoadFile("a.png")
	require.NoError(t, err)
	second, err := l.LoadFile("a.png")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), reads.Load())
	assert.Equal(t, 1, l.Len())

	assert.True(t, l.Evict("a.png"))
	assert.False(t, l.Evict("a.png"))
	assert.Nil(t, l.Get("a.png"))

	_, err = l.LoadFile("missing.png")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoaderLinearAndPreloaded(t *testing.T) {
	pre := &common.TextureData{Name: "white", Width: 1, Height: 1, Pixels: []byte{255, 255, 255, 255}}
	l := NewLoader(WithLinear(true), WithTexture("white", pre))
	assert.Same(t, pre, l.Get("white"))

	tex, err := l.LoadTexture("normal.png", encode(t, FormatPNG))
	require.NoError(t, err)
	assert.Equal(t, common.TextureFormatRGBA8Linear, tex.Format)
}

func TestLoadAllPreservesOrder(t *testing.T) {
	var reads atomic.Int32
	files := map[string][]byte{
		"a.png": encode(t, FormatPNG),
		"b.bmp": encode(t, FormatBMP),
		"c.gif": encode(t, FormatGIF),
	}
	l := NewLoader(memFS(t, &reads, files), WithParallelism(2))

	texs, err := l.LoadAll(context.Background(), "c.gif", "a.png", "b.bmp")
	require.NoError(t, err)
	require.Len(t, texs, 3)
	assert.Equal(t, "c.gif", texs[0].Name)
	assert.Equal(t, "a.png", texs[1].Name)
	assert.Equal(t, "image/bmp", texs[2].MimeType)
}

func TestLoadAllReturnsFirstError(t *testing.T) {
	var reads atomic.Int32
	l := NewLoader(memFS(t, &reads, map[string][]byte{"a.png": encode(t, FormatPNG)}))

	texs, err := l.LoadAll(context.Background(), "a.png", "missing.png")
	assert.Nil(t, texs)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestStreamerDeliversCompletions(t *testing.T) {
	s := NewStreamer(NewLoader(), WithWorkers(2), WithQueueSize(8))
	t.Cleanup(s.Close)

	require.NoError(t, s.Request(Request{Name: "a.png", Data: encode(t, FormatPNG), Tag: 1}))
	require.NoError(t, s.Request(Request{Name: "b.txt", Data: []byte("junk"), Tag: 2}))
	require.NoError(t, s.Request(Request{Name: "empty"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, 3, s.Pending())

	results := map[string]Result{}
	n := s.Drain(func(r Result) { results[r.Name] = r })
	assert.Equal(t, 3, n)
	assert.Zero(t, s.Pending())
	assert.Zero(t, s.Drain(func(Result) { t.Fatal("nothing left to drain") }))

	require.NoError(t, results["a.png"].Err)
	assert.Equal(t, uint32(4), results["a.png"].Texture.Width)
	assert.Equal(t, 1, results["a.png"].Tag)
	assert.ErrorIs(t, results["b.txt"].Err, ErrUnsupportedFormat)
	assert.Equal(t, 2, results["b.txt"].Tag)
	assert.Error(t, results["empty"].Err)
}

func TestStreamerRejectsWhenFullOrClosed(t *testing.T) {
	s := NewStreamer(NewLoader(), WithWorkers(1), WithQueueSize(2))

	data := encode(t, FormatPNG)
	require.NoError(t, s.Request(Request{Name: "a.png", Data: data}))
	require.NoError(t, s.Request(Request{Name: "b.png", Data: data}))
	assert.ErrorIs(t, s.Request(Request{Name: "c.png", Data: data}), ErrStreamerBusy)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, 2, s.Drain(func(Result) {}))
	require.NoError(t, s.Request(Request{Name: "c.png", Data: data}))

	s.Close()
	assert.ErrorIs(t, s.Request(Request{Name: "d.png", Data: data}), ErrStreamerClosed)
	assert.NotPanics(t, s.Close)

	select {
	case r := <-s.Completions():
		assert.Equal(t, "c.png", r.Name)
	case <-time.After(time.Second):
		t.Fatal("result produced before Close was lost")
	}
}

func TestStreamerWaitHonorsContext(t *testing.T) {
	s := NewStreamer(NewLoader(WithReadFile(func(string) ([]byte, error) {
		time.Sleep(200 * time.Millisecond)
		return nil, errors.New("slow")
	})), WithWorkers(1))
	t.Cleanup(s.Close)

	require.NoError(t, s.Request(Request{Name: "slow", Path: "slow.png"}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}
