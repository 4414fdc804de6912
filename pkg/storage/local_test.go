package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func put(t *testing.T, s FileStore, name, data string) {
	t.Helper()
	w, err := s.Write(context.Background(), name)
	if err != nil {
		t.Fatalf("Write %s: %v", name, err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close %s: %v", name, err)
	}
}

func get(t *testing.T, s FileStore, name string) string {
	t.Helper()
	r, err := s.Read(context.Background(), name)
	if err != nil {
		t.Fatalf("Read %s: %v", name, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLocalReadWrite(t *testing.T) {
	s := newTestLocal(t)
	put(t, s, "voras/model.pth", "first version")
	put(t, s, "voras/model.pth", "v2")
	if got := get(t, s, "voras/model.pth"); got != "v2" {
		t.Fatalf("Read = %q, want %q", got, "v2")
	}
}

func TestLocalWriteInvisibleUntilClose(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	w, err := s.Write(ctx, "pending.pth")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "data")
	if ok, _ := s.Exists(ctx, "pending.pth"); ok {
		t.Fatal("blob visible before Close")
	}
	if objs, _ := s.List(ctx, ""); len(objs) != 0 {
		t.Fatalf("List shows staged file: %+v", objs)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "pending.pth"); !ok {
		t.Fatal("blob missing after Close")
	}
}

func TestLocalAbort(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	put(t, s, "keep.pth", "old")
	w, err := s.Write(ctx, "keep.pth")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "half")
	if err := Abort(w); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if got := get(t, s, "keep.pth"); got != "old" {
		t.Fatalf("Read after Abort = %q, want old", got)
	}
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Fatalf("staged file left behind: %v", entries)
	}
}

func TestLocalMissing(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	if _, err := s.Read(ctx, "nope"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read missing = %v, want os.ErrNotExist", err)
	}
	if ok, err := s.Exists(ctx, "nope"); err != nil || ok {
		t.Fatalf("Exists missing = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, "nope"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestLocalDelete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	put(t, s, "a.pth", "x")
	if err := s.Delete(ctx, "a.pth"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "a.pth"); ok {
		t.Fatal("blob still exists after Delete")
	}
}

func TestLocalList(t *testing.T) {
	s := newTestLocal(t)
	put(t, s, "b/two.pth", "22")
	put(t, s, "a/one.pth", "1")
	put(t, s, "b/three.pth", "333")

	objs, err := s.List(context.Background(), "b/")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 || objs[0].Name != "b/three.pth" || objs[1].Name != "b/two.pth" {
		t.Fatalf("List = %+v", objs)
	}
	if objs[0].Size != 3 || objs[0].ModTime.IsZero() {
		t.Errorf("object = %+v", objs[0])
	}
}

func TestInvalidNames(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	for _, name := range []string{"", "/etc/passwd", "../escape", "a/../../b", ".", `a\b`} {
		if _, err := s.Read(ctx, name); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Read(%q) = %v, want ErrInvalidPath", name, err)
		}
		if _, err := s.Write(ctx, name); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Write(%q) = %v, want ErrInvalidPath", name, err)
		}
	}
	if _, err := cleanName("a/./b/../c"); err != nil {
		t.Errorf("cleanName rejected an in-root path: %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, uri := range []string{dir, "file://" + filepath.ToSlash(dir)} {
		fs, err := Open(ctx, Config{URI: uri})
		if err != nil {
			t.Fatalf("Open(%q): %v", uri, err)
		}
		l, ok := fs.(*Local)
		if !ok || l.Root() != dir {
			t.Errorf("Open(%q) = %#v", uri, fs)
		}
	}

	fs, err := Open(ctx, Config{URI: "s3://models/voras/", Region: "ap-northeast-1", Endpoint: "http://127.0.0.1:9000", PathStyle: true})
	if err != nil {
		t.Fatalf("Open s3: %v", err)
	}
	s3s, ok := fs.(*S3Store)
	if !ok || s3s.Bucket() != "models" || s3s.prefix != "voras" {
		t.Fatalf("Open s3 = %#v", fs)
	}

	for _, uri := range []string{"", "s3:///x", "gs://bucket"} {
		if _, err := Open(ctx, Config{URI: uri}); err == nil {
			t.Errorf("Open(%q) succeeded", uri)
		}
	}
}
