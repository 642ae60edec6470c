// Package image guards the decode path: every uploaded payload passes size,
// format and dimension checks before any pixel work happens.
package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
	"stayonboard-server-go/internal/platform/logging"
)

// Validator performs layered checks against incoming image payloads.
type Validator struct {
	config *config.ImageConfig
	logger *logging.Logger
}

// NewValidator constructs a validator bound to the image limits in config.
func NewValidator(cfg *config.ImageConfig, logger *logging.Logger) *Validator {
	return &Validator{
		config: cfg,
		logger: logger,
	}
}

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"jpg":  {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
	"bmp":  {0x42, 0x4D},
}

// Meta describes a payload that passed validation.
type Meta struct {
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int64  `json:"file_size"`
}

// SupportedFormats lists the formats the validator accepts, in a stable
// order.
func (v *Validator) SupportedFormats() []string {
	if v.config != nil && len(v.config.AllowedFormats) > 0 {
		out := make([]string, len(v.config.AllowedFormats))
		copy(out, v.config.AllowedFormats)
		return out
	}
	return []string{"jpeg", "jpg", "png", "gif", "webp", "bmp"}
}

// Validate checks the payload headers against the configured limits without
// decoding the full pixel data.
func (v *Validator) Validate(raw []byte, declaredFormat string) (Meta, error) {
	const op = "image.validate"

	if len(raw) == 0 {
		return Meta{}, errors.New(errors.KindInvalidParameters, op, "empty image payload")
	}

	if int64(len(raw)) > v.config.MaxFileSize {
		return Meta{}, errors.New(errors.KindInvalidParameters, op,
			fmt.Sprintf("file size %d exceeds limit %d", len(raw), v.config.MaxFileSize))
	}

	if declaredFormat != "" && !v.formatAllowed(declaredFormat) {
		return Meta{}, errors.New(errors.KindUnsupportedImage, op,
			fmt.Sprintf("unsupported format %q", declaredFormat))
	}

	cfg, actualFormat, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if declaredFormat != "" && !v.signatureMatches(raw, declaredFormat) {
			header := raw[:min(len(raw), 16)]
			v.logger.WarnTag("EVAL", "file signature mismatch: declared=%s header=%x",
				declaredFormat, header)
		}
		return Meta{}, errors.Wrap(errors.KindImageDecode, op, "decode image header", err)
	}

	if !v.formatAllowed(actualFormat) {
		return Meta{}, errors.New(errors.KindUnsupportedImage, op,
			fmt.Sprintf("unsupported format %q", actualFormat))
	}

	if cfg.Width > v.config.MaxWidth || cfg.Height > v.config.MaxHeight {
		return Meta{}, errors.New(errors.KindInvalidParameters, op,
			fmt.Sprintf("dimensions %dx%d exceed limit %dx%d",
				cfg.Width, cfg.Height, v.config.MaxWidth, v.config.MaxHeight))
	}

	if total := int64(cfg.Width) * int64(cfg.Height); total > v.config.MaxPixels {
		return Meta{}, errors.New(errors.KindInvalidParameters, op,
			fmt.Sprintf("pixel count %d exceeds limit %d", total, v.config.MaxPixels))
	}

	meta := Meta{
		Format:   actualFormat,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FileSize: int64(len(raw)),
	}
	v.logger.DebugTag("EVAL", "image accepted: format=%s size=%dx%d bytes=%d",
		meta.Format, meta.Width, meta.Height, meta.FileSize)
	return meta, nil
}

// Decode validates the payload and decodes the full pixel data.
func (v *Validator) Decode(raw []byte, declaredFormat string) (image.Image, Meta, error) {
	meta, err := v.Validate(raw, declaredFormat)
	if err != nil {
		return nil, Meta{}, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, Meta{}, errors.Wrap(errors.KindImageDecode, "image.decode", "decode image data", err)
	}
	return img, meta, nil
}

func (v *Validator) formatAllowed(format string) bool {
	if format == "" {
		return false
	}
	format = strings.ToLower(format)
	for _, allowed := range v.SupportedFormats() {
		if strings.ToLower(allowed) == format {
			return true
		}
	}
	return false
}

func (v *Validator) signatureMatches(raw []byte, format string) bool {
	signature, ok := imageSignatures[strings.ToLower(format)]
	if !ok {
		return true
	}
	if len(raw) < len(signature) {
		return false
	}
	return bytes.Equal(signature, raw[:len(signature)])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
