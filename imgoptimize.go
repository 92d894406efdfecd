// Image shrinking for -binary downloads: resize, grayscale, JPEG-encode
// for e-readers.
package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type imageOpts struct {
	maxWidth  int
	quality   int
	grayscale bool
}

// enabled reports whether any option asks for the image to be rewritten.
func (o imageOpts) enabled() bool {
	return o.maxWidth > 0 || o.grayscale
}

func humanSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	f := float64(n)
	for _, u := range units {
		if math.Abs(f) < 1024 {
			return fmt.Sprintf("%.1f%s", f, u)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.1f%s", f, units[len(units)-1])
}

// resize downscales an image using BiLinear resampling.
func resize(src image.Image, dstW, dstH int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func toGrayscale(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return gray
}

// flattenAlpha composites src onto a white background.
func flattenAlpha(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}

func isAnimatedGIF(data []byte) bool {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return len(g.Image) > 1
}

// shrinkImage re-encodes data as JPEG per opts. It returns false when the
// body should be saved untouched: SVG and other non-raster data, animated
// GIFs, or anything the encoder rejects.
func shrinkImage(data []byte, opts imageOpts, log zerolog.Logger) ([]byte, bool) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("not a raster image, saving as is")
		return nil, false
	}
	if format == "gif" && isAnimatedGIF(data) {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Str("format", format).Msg("could not decode image")
		return nil, false
	}

	img = flattenAlpha(img)

	// Downscale by width only, never upscale.
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if opts.maxWidth > 0 && w > opts.maxWidth {
		newH := int(math.Round(float64(h) * float64(opts.maxWidth) / float64(w)))
		if newH < 1 {
			newH = 1
		}
		img = resize(img, opts.maxWidth, newH)
	}
	if opts.grayscale {
		img = toGrayscale(img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.quality}); err != nil {
		log.Warn().Err(err).Msg("JPEG encode failed")
		return nil, false
	}
	return buf.Bytes(), true
}
