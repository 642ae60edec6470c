// Package imagestore keeps uploaded images addressable between the upload
// and the validations (and reruns) that reference them.
package imagestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"time"
)

// Handle identifies a stored image. The StorageID is the opaque reference
// clients pass back; the Fingerprint is a digest of the decoded pixel data
// and drives cache keys, so two byte-wise different uploads of the same
// pixels share cached verdicts.
type Handle struct {
	StorageID   string    `json:"storage_id"`
	Fingerprint string    `json:"fingerprint"`
	Format      string    `json:"format"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	SizeBytes   int64     `json:"size_bytes"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store persists uploaded image payloads for the retention window.
type Store interface {
	// Save stores the raw payload under a fresh storage id.
	Save(ctx context.Context, raw []byte, handle Handle) (Handle, error)
	// Resolve returns the handle for a storage id.
	Resolve(ctx context.Context, storageID string) (Handle, error)
	// Load returns the raw payload for a storage id.
	Load(ctx context.Context, storageID string) ([]byte, error)
	// Remove drops the payload and its handle.
	Remove(ctx context.Context, storageID string) error
	Close(ctx context.Context) error
}

// Fingerprint digests the decoded pixels so the result is independent of the
// container encoding.
func Fingerprint(img image.Image) string {
	bounds := img.Bounds()
	h := sha256.New()
	buf := make([]byte, 8)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			buf[0] = byte(r >> 8)
			buf[1] = byte(r)
			buf[2] = byte(g >> 8)
			buf[3] = byte(g)
			buf[4] = byte(b >> 8)
			buf[5] = byte(b)
			buf[6] = byte(a >> 8)
			buf[7] = byte(a)
			h.Write(buf)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
