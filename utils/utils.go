package utils

import (
	"bytes"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math/big"
	"regexp"
	"strings"

	"github.com/nfnt/resize"
)

// CodeAlphabet leaves out characters that are easy to confuse when typed (0/O, 1/I)
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// Sha512String hashes and encodes in hex the result
func Sha512String(s string) string {
	hash := sha512.New()
	hash.Write([]byte(s))
	return hex.EncodeToString(hash.Sum(nil))
}

// RandCode returns a human-enterable code of the given length
func RandCode(length int) string {
	max := big.NewInt(int64(len(CodeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		out[i] = CodeAlphabet[n.Int64()]
	}
	return string(out)
}

// NormalizeCode is applied to every code typed in by a user
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SafeExt returns a lowercase alphanumeric extension of fileName, "png" if there is none
func SafeExt(fileName string) string {
	ext := fileName
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		ext = fileName[i+1:]
	}
	ext = nonAlnum.ReplaceAllString(strings.ToLower(ext), "")
	if ext == "" {
		return "png"
	}
	return ext
}

// MaxImagePixels bounds width*height of images that get decoded
const MaxImagePixels = 50_000_000

// ImageTooLarge reads only the image header. Unknown formats are not too large.
func ImageTooLarge(data []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels
}

type ShrinkResult struct {
	Data     []byte
	MimeType string
	Resized  bool
}

// ShrinkImage re-encodes the image as JPEG if any side is larger than maxSize.
// Images that cannot be decoded or are over MaxImagePixels are returned unchanged.
func ShrinkImage(data []byte, mimeType string, maxSize uint) ShrinkResult {
	unchanged := ShrinkResult{Data: data, MimeType: mimeType}
	if maxSize == 0 || ImageTooLarge(data) {
		return unchanged
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return unchanged
	}
	size := img.Bounds().Size()
	if uint(size.X) <= maxSize && uint(size.Y) <= maxSize {
		return unchanged
	}
	var buf bytes.Buffer
	thumb := resize.Thumbnail(maxSize, maxSize, img, resize.Lanczos3)
	if err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 90}); err != nil {
		return unchanged
	}
	return ShrinkResult{Data: buf.Bytes(), MimeType: "image/jpeg", Resized: true}
}
