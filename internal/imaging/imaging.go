// =============================================================================
// Automeldung Exporter - Image Conversion
// =============================================================================
//
// Converts a scanned attachment image into a single-page A4 PDF: the image is
// embedded as a JPEG XObject, scaled to fit and centered on the page. Very
// large scans are downsampled first so the output stays mailable.
//
// Accepts jpg/jpeg/png/gif/bmp/tif/tiff/webp.
//
// =============================================================================

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/automeldung/automeldung/internal/pdf"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// A4 page size in PDF points.
const (
	a4Width  = 595.28
	a4Height = 841.89
)

// maxPixels caps the longer image edge before embedding; scans above this
// resolution gain nothing at A4 print size.
const maxPixels = 2480 // ~300 dpi across an A4 width

// jpegQuality balances legibility of handwriting against file size.
const jpegQuality = 90

// imageExtensions lists the file extensions the converter accepts.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImagePath reports whether path looks like a convertible image file.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ToPDF converts the image at imagePath into a centered single-page A4 PDF
// written to outPath.
func ToPDF(imagePath, outPath string) error {
	doc, err := Document(imagePath)
	if err != nil {
		return err
	}
	return doc.WriteFile(outPath)
}

// Document builds the single-page A4 document for the image at path.
func Document(path string) (*pdf.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imaging: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode %s: %w", path, err)
	}
	img = downsample(img)

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", path, err)
	}

	bounds := img.Bounds()
	iw, ih := float64(bounds.Dx()), float64(bounds.Dy())

	// Aspect-fit scaling, centered on the page.
	scale := a4Width / iw
	if s := a4Height / ih; s < scale {
		scale = s
	}
	w, h := iw*scale, ih*scale
	x, y := (a4Width-w)/2, (a4Height-h)/2

	doc := pdf.NewDocument()
	imgRef := doc.Add(&pdf.Stream{
		Dict: pdf.Dict{
			"Type":             pdf.Name("XObject"),
			"Subtype":          pdf.Name("Image"),
			"Width":            pdf.Integer(bounds.Dx()),
			"Height":           pdf.Integer(bounds.Dy()),
			"ColorSpace":       pdf.Name("DeviceRGB"),
			"BitsPerComponent": pdf.Integer(8),
			"Filter":           pdf.Name("DCTDecode"),
		},
		Data: jpg.Bytes(),
	})
	content := fmt.Sprintf("q %.2f 0 0 %.2f %.2f %.2f cm /Im0 Do Q\n", w, h, x, y)
	contentRef := doc.Add(&pdf.Stream{Dict: pdf.Dict{}, Data: []byte(content)})
	pageRef := doc.Add(pdf.Dict{
		"Type":     pdf.Name("Page"),
		"MediaBox": pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Real(a4Width), pdf.Real(a4Height)},
		"Contents": contentRef,
		"Resources": pdf.Dict{
			"XObject": pdf.Dict{"Im0": imgRef},
		},
	})
	pagesRef := doc.Add(pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  pdf.Array{pageRef},
		"Count": pdf.Integer(1),
	})
	if page, ok := doc.Get(pageRef.Num).(pdf.Dict); ok {
		page["Parent"] = pagesRef
	}
	doc.SetRoot(doc.Add(pdf.Dict{
		"Type":  pdf.Name("Catalog"),
		"Pages": pagesRef,
	}))
	return doc, nil
}

// downsample shrinks img so its longer edge is at most maxPixels.
func downsample(img image.Image) image.Image {
	b := img.Bounds()
	longer := b.Dx()
	if b.Dy() > longer {
		longer = b.Dy()
	}
	if longer <= maxPixels {
		return img
	}
	scale := float64(maxPixels) / float64(longer)
	dst := image.NewRGBA(image.Rect(0, 0,
		int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
