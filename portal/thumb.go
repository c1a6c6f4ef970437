package portal

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"strings"
	"time"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"
)

// ThumbOptions bound the thumbnail reducer. The defaults mirror what
// the portal persists: a ~90px wide, heavily compressed jpeg capped at
// roughly 60KB so a single record can never blow the storage quota.
type ThumbOptions struct {
	MaxWidth      int
	Quality       float64
	MaxBytes      int
	DecodeTimeout time.Duration
}

// DefaultThumbOptions returns the standard reducer bounds.
func DefaultThumbOptions() ThumbOptions {
	return ThumbOptions{
		MaxWidth:      90,
		Quality:       0.35,
		MaxBytes:      60 << 10,
		DecodeTimeout: 5 * time.Second,
	}
}

func (o ThumbOptions) withDefaults() ThumbOptions {
	d := DefaultThumbOptions()
	if o.MaxWidth <= 0 {
		o.MaxWidth = d.MaxWidth
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = d.Quality
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = d.MaxBytes
	}
	if o.DecodeTimeout <= 0 {
		o.DecodeTimeout = d.DecodeTimeout
	}
	return o
}

// Thumbnail downscales a base64 image data URL to a small low-quality
// jpeg data URL. It never fails: any decode error, an unparseable
// input, a timeout, or an oversized result yields "". The image is
// never upscaled.
func Thumbnail(ctx context.Context, dataURL string, opts ThumbOptions) string {
	opts = opts.withDefaults()

	raw, ok := decodeDataURL(dataURL)
	if !ok {
		return ""
	}

	src, ok := decodeImage(ctx, raw, opts.DecodeTimeout)
	if !ok {
		return ""
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return ""
	}

	scale := float64(opts.MaxWidth) / float64(w)
	if scale > 1 {
		scale = 1
	}
	dw := int(float64(w)*scale + 0.5)
	dh := int(float64(h)*scale + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	q := int(opts.Quality*100 + 0.5)
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return ""
	}
	if buf.Len() > opts.MaxBytes {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// decodeDataURL strips a data:<mime>;base64, prefix and decodes the
// payload. Bare base64 without a prefix is accepted too.
func decodeDataURL(s string) ([]byte, bool) {
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, false
		}
		s = s[i+1:]
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if b, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, false
		}
	}
	return b, true
}

// decodeImage runs image.Decode under a deadline so a corrupt or
// adversarial payload cannot hang the caller. A panicking decoder is
// absorbed and reported as a failure.
func decodeImage(ctx context.Context, raw []byte, timeout time.Duration) (image.Image, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		img image.Image
		ok  bool
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{nil, false}
			}
		}()
		img, _, err := image.Decode(bytes.NewReader(raw))
		ch <- result{img, err == nil}
	}()

	select {
	case <-ctx.Done():
		return nil, false
	case r := <-ch:
		return r.img, r.ok
	}
}
