package raster

import (
	"image"
	"image/png"
	"os"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Preview renders a grid as a grayscale image, one gray level per label, and
// shrinks it to fit within maxSide pixels. Nearest-neighbour sampling keeps
// label boundaries crisp. A maxSide of zero keeps full resolution.
func Preview(g *Grid, labels int, maxSide uint) image.Image {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	if labels > 0 {
		for i, v := range g.Pix {
			if v != 0 {
				img.Pix[i] = uint8(min(255, 255*int(v)/labels))
			}
		}
	}

	if maxSide == 0 || (uint(g.Width) <= maxSide && uint(g.Height) <= maxSide) {
		return img
	}
	return resize.Thumbnail(maxSide, maxSide, img, resize.NearestNeighbor)
}

// WritePreview encodes Preview(g, labels, maxSide) as a PNG file.
func WritePreview(path string, g *Grid, labels int, maxSide uint) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create preview")
	}

	if err := png.Encode(f, Preview(g, labels, maxSide)); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode preview %s", path)
	}
	return errors.Wrap(f.Close(), "close preview")
}
