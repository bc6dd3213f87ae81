package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func contractStores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"fs":     fsStore,
		"s3":     NewMockS3ForTests(),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range contractStores(t) {
		t.Run(name, func(t *testing.T) {
			key := "incidents/inc-1/att-1/engine-photo.jpg"
			info, err := store.Put(ctx, key, strings.NewReader("jpegbytes"), PutOptions{ContentType: "image/jpeg"})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != key || info.Size != int64(len("jpegbytes")) {
				t.Fatalf("unexpected info %+v", info)
			}
			if _, err := store.Put(ctx, key, strings.NewReader("again"), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}

			head, err := store.Head(ctx, key)
			if err != nil {
				t.Fatalf("head: %v", err)
			}
			if head.ContentType != "image/jpeg" {
				t.Fatalf("content type not kept: %+v", head)
			}

			_, rc, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(body) != "jpegbytes" {
				t.Fatalf("unexpected body %q", body)
			}

			if _, err := store.Put(ctx, "incidents/inc-2/att-9/form.pdf", strings.NewReader("pdf"), PutOptions{}); err != nil {
				t.Fatalf("put second: %v", err)
			}
			listed, err := store.List(ctx, "incidents/inc-1/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(listed) != 1 || listed[0].Key != key {
				t.Fatalf("unexpected listing %+v", listed)
			}

			existed, err := store.Delete(ctx, key)
			if err != nil || !existed {
				t.Fatalf("delete: existed=%v err=%v", existed, err)
			}
			existed, err = store.Delete(ctx, key)
			if err != nil || existed {
				t.Fatalf("second delete: existed=%v err=%v", existed, err)
			}
			if _, err := store.Head(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStoresRejectEscapingKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range contractStores(t) {
		for _, key := range []string{"", "/etc/passwd", "incidents/../../secret"} {
			if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
				t.Fatalf("%s accepted key %q", name, key)
			}
		}
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || store.Driver() != DriverMemory {
		t.Fatalf("memory open: %v %v", store, err)
	}
	store, err = Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("default open: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := Open(ctx, Config{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestPresign(t *testing.T) {
	ctx := context.Background()
	if _, err := NewMemory().PresignURL(ctx, "a", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("memory presign should be unsupported, got %v", err)
	}
	s3 := NewMockS3ForTests()
	url, err := s3.PresignURL(ctx, "incidents/inc-1/att/photo.jpg", SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "photo.jpg") || !strings.Contains(url, "X-Amz-Signature") {
		t.Fatalf("unexpected presigned url %s", url)
	}
	if _, err := s3.PresignURL(ctx, "x", SignedURLOptions{Method: "PUT"}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported for PUT, got %v", err)
	}
}
