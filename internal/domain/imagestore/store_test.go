package imagestore

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
)

func testHandle() Handle {
	return Handle{
		Fingerprint: "abc123",
		Format:      "png",
		Width:       10,
		Height:      10,
		SizeBytes:   42,
	}
}

func runStoreSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	payload := []byte("fake image bytes")

	handle, err := s.Save(ctx, payload, testHandle())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if handle.StorageID == "" {
		t.Fatalf("save did not assign a storage id")
	}
	if handle.StoredAt.IsZero() {
		t.Fatalf("save did not set stored-at time")
	}

	resolved, err := s.Resolve(ctx, handle.StorageID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Fingerprint != "abc123" || resolved.Format != "png" {
		t.Fatalf("resolved handle %+v lost metadata", resolved)
	}

	raw, err := s.Load(ctx, handle.StorageID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !bytes.Equal(raw, payload) {
		t.Fatalf("loaded payload differs from stored payload")
	}

	if err := s.Remove(ctx, handle.StorageID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := s.Resolve(ctx, handle.StorageID); !errors.IsKind(err, errors.KindImageUnavailable) {
		t.Fatalf("resolve after remove: got %v, want image unavailable", err)
	}
	if _, err := s.Load(ctx, handle.StorageID); !errors.IsKind(err, errors.KindImageUnavailable) {
		t.Fatalf("load after remove: got %v, want image unavailable", err)
	}

	if _, err := s.Save(ctx, nil, testHandle()); !errors.IsKind(err, errors.KindInvalidParameters) {
		t.Fatalf("save of empty payload: got %v, want invalid parameters", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory(time.Hour)
	defer s.Close(context.Background())
	runStoreSuite(t, s)
}

func TestMemoryStoreIDsAreUnique(t *testing.T) {
	s := NewMemory(time.Hour)
	defer s.Close(context.Background())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		h, err := s.Save(context.Background(), []byte("x"), testHandle())
		if err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
		if seen[h.StorageID] {
			t.Fatalf("duplicate storage id %s", h.StorageID)
		}
		seen[h.StorageID] = true
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedis(config.RedisConfig{Addr: mr.Addr()}, time.Hour)
	if err != nil {
		t.Fatalf("redis store setup failed: %v", err)
	}
	defer s.Close(context.Background())
	runStoreSuite(t, s)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedis(config.RedisConfig{Addr: mr.Addr()}, time.Minute)
	if err != nil {
		t.Fatalf("redis store setup failed: %v", err)
	}
	defer s.Close(context.Background())

	handle, err := s.Save(context.Background(), []byte("payload"), testHandle())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := s.Resolve(context.Background(), handle.StorageID); !errors.IsKind(err, errors.KindImageUnavailable) {
		t.Fatalf("resolve after expiry: got %v, want image unavailable", err)
	}
}

func TestFactory(t *testing.T) {
	s, err := New(config.StoreConfig{Driver: "memory", TTL: time.Hour})
	if err != nil {
		t.Fatalf("memory factory failed: %v", err)
	}
	s.Close(context.Background())

	if _, err := New(config.StoreConfig{Driver: "cassandra"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestFingerprintTracksPixelsNotEncoding(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 30), B: 7, A: 255})
		}
	}

	// Two encodes of the same pixels decode to the same fingerprint.
	var a, b bytes.Buffer
	if err := png.Encode(&a, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&b, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	imgA, _, err := image.Decode(&a)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	imgB, _, err := image.Decode(&b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if Fingerprint(imgA) != Fingerprint(imgB) {
		t.Fatalf("same pixels produced different fingerprints")
	}

	other := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	if Fingerprint(img) == Fingerprint(other) {
		t.Fatalf("different pixels produced the same fingerprint")
	}
}
