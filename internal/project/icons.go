package project

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
)

// Launcher icon sizes per density bucket.
var iconSizes = map[string]int{
	"mipmap-mdpi":    48,
	"mipmap-hdpi":    72,
	"mipmap-xhdpi":   96,
	"mipmap-xxhdpi":  144,
	"mipmap-xxxhdpi": 192,
}

// GenerateIcons renders ic_launcher.png for every density bucket under
// the project's res/ tree, squaring the source with a center crop first.
func GenerateIcons(projectDir string, src image.Image) error {
	resDir := filepath.Join(projectDir, "app", "src", "main", "res")
	for bucket, size := range iconSizes {
		icon := imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)
		dir := filepath.Join(resDir, bucket)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		path := filepath.Join(dir, "ic_launcher.png")
		if err := imaging.Save(icon, path); err != nil {
			return fmt.Errorf("write icon %s: %w", path, err)
		}
	}
	return nil
}

// DecodeIcon parses a downloaded icon image.
func DecodeIcon(raw []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode icon: %w", err)
	}
	return img, nil
}

// PlaceholderIcon is a solid square in the page's theme color, used when
// the site exposes no usable icon.
func PlaceholderIcon(themeColor string) image.Image {
	return imaging.New(512, 512, parseHexColor(themeColor))
}

// parseHexColor accepts #rgb and #rrggbb; anything else comes out white.
func parseHexColor(s string) color.NRGBA {
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	if len(s) == 0 || s[0] != '#' {
		return white
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return white
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return white
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
