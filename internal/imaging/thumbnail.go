// Package imaging renders WebP previews of uploaded photos with libvips.
package imaging

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/cshum/vipsgen/vips"
)

type WebPThumbnailer struct {
	maxWidth  int
	maxHeight int
	quality   int
}

func NewWebPThumbnailer(maxSize, quality int) *WebPThumbnailer {
	return &WebPThumbnailer{maxWidth: maxSize, maxHeight: maxSize, quality: quality}
}

func calculateOptimalScale(w, h int, maxWidth, maxHeight int) float64 {
	if w <= maxWidth && h <= maxHeight {
		return 1.0
	}
	return math.Min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
}

// Thumbnail streams a downscaled WebP copy of the image read from r. Decode
// errors surface when the returned reader is read.
func (t *WebPThumbnailer) Thumbnail(ctx context.Context, r io.Reader) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()

		source := vips.NewSource(io.NopCloser(r))
		defer source.Close()

		img, err := vips.NewImageFromSource(source, &vips.LoadOptions{
			Access:      vips.AccessSequentialUnbuffered,
			FailOnError: true,
		})
		if err != nil {
			pw.CloseWithError(fmt.Errorf("gagal membaca gambar: %w", err))
			return
		}
		defer img.Close()

		scale := calculateOptimalScale(img.Width(), img.Height(), t.maxWidth, t.maxHeight)
		if scale < 1.0 {
			if err := img.Resize(scale, nil); err != nil {
				pw.CloseWithError(fmt.Errorf("gagal resize thumbnail: %w", err))
				return
			}
		}

		target := vips.NewTarget(pw)
		defer target.Close()

		if err := img.WebpsaveTarget(target, &vips.WebpsaveTargetOptions{Q: t.quality}); err != nil {
			pw.CloseWithError(fmt.Errorf("gagal menyimpan thumbnail webp: %w", err))
		}
	}()
	return pr, nil
}
