package qrcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

var ErrInvalidDataURL = errors.New("invalid png data url")

type Style struct {
	Foreground color.RGBA
	Background color.RGBA
	// Margin is the quiet zone width, in modules.
	Margin int
	// Scale is the pixel size of one module.
	Scale int
}

var DefaultStyle = Style{
	Foreground: color.RGBA{R: 0x3d, G: 0x1f, B: 0x15, A: 0xff},
	Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	Margin:     1,
	Scale:      8,
}

// Generator produces the verification code embedded in tickets: a QR image
// encoding the check-in URL of a registration, serialized as a PNG data URL.
type Generator struct {
	origin string
	style  Style
}

func NewGenerator(origin string) *Generator {
	return &Generator{origin: strings.TrimRight(origin, "/"), style: DefaultStyle}
}

func (g *Generator) CheckinURL(registrationID string) string {
	return g.origin + "/dashboard?inscription=" + url.QueryEscape(registrationID)
}

func (g *Generator) Generate(registrationID string) (string, error) {
	if strings.TrimSpace(registrationID) == "" {
		return "", errors.New("generate verification code: empty registration id")
	}
	img, err := Encode(g.CheckinURL(registrationID), g.style)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(img), nil
}

// Encode renders content as a PNG QR code using the given style.
func Encode(content string, s Style) ([]byte, error) {
	if s.Scale <= 0 {
		s.Scale = 1
	}
	if s.Margin < 0 {
		s.Margin = 0
	}

	q, err := goqrcode.New(content, goqrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	bitmap := q.Bitmap()

	modules := len(bitmap) + 2*s.Margin
	size := modules * s.Scale
	img := image.NewPaletted(image.Rect(0, 0, size, size), color.Palette{s.Background, s.Foreground})

	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			px := (x + s.Margin) * s.Scale
			py := (y + s.Margin) * s.Scale
			for dy := 0; dy < s.Scale; dy++ {
				for dx := 0; dx < s.Scale; dx++ {
					img.SetColorIndex(px+dx, py+dy, 1)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeDataURL returns the raw image bytes of a base64 data URL. A bare
// base64 payload without the data: header is accepted as well.
func DecodeDataURL(dataURL string) ([]byte, error) {
	payload := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		idx := strings.Index(dataURL, ";base64,")
		if idx < 0 {
			return nil, ErrInvalidDataURL
		}
		payload = dataURL[idx+len(";base64,"):]
	}
	if payload == "" {
		return nil, ErrInvalidDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return raw, nil
}
