package storage

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSaveOpen_RoundTrip(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk err: %v", err)
	}

	content := "fake wheel bytes"
	n, err := d.Save("demo", "demo-1.0.0-py3-none-any.whl", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}
	if n != int64(len(content)) {
		t.Fatalf("size = %d, want %d", n, len(content))
	}

	f, size, err := d.Open("demo", "demo-1.0.0-py3-none-any.whl")
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	defer f.Close()
	if size != int64(len(content)) {
		t.Fatalf("open size = %d, want %d", size, len(content))
	}
	got, _ := io.ReadAll(f)
	if string(got) != content {
		t.Fatalf("content = %q", got)
	}
}

func TestSave_DuplicateIsErrExists(t *testing.T) {
	d, _ := NewDisk(t.TempDir())
	if _, err := d.Save("demo", "a.whl", strings.NewReader("one")); err != nil {
		t.Fatalf("Save err: %v", err)
	}
	if _, err := d.Save("demo", "a.whl", strings.NewReader("two")); !errors.Is(err, ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}
	// el contenido original queda intacto
	f, _, err := d.Open("demo", "a.whl")
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	defer f.Close()
	got, _ := io.ReadAll(f)
	if string(got) != "one" {
		t.Fatalf("content = %q, want original", got)
	}
}

func TestOpen_Missing(t *testing.T) {
	d, _ := NewDisk(t.TempDir())
	if _, _, err := d.Open("demo", "nope.whl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	d, _ := NewDisk(t.TempDir())
	bad := [][2]string{
		{"../evil", "a.whl"},
		{"demo", "../../etc/passwd"},
		{"demo", "sub/dir.whl"},
		{"", "a.whl"},
		{"demo", ""},
		{`demo\..`, "a.whl"},
	}
	for _, c := range bad {
		if _, err := d.Save(c[0], c[1], strings.NewReader("x")); err == nil {
			t.Fatalf("Save(%q, %q) accepted a bad path", c[0], c[1])
		}
		if _, _, err := d.Open(c[0], c[1]); err == nil {
			t.Fatalf("Open(%q, %q) accepted a bad path", c[0], c[1])
		}
	}
}

func TestExistsAndRemovePackage(t *testing.T) {
	d, _ := NewDisk(t.TempDir())
	_, _ = d.Save("demo", "a.whl", strings.NewReader("x"))

	if !d.Exists("demo", "a.whl") {
		t.Fatal("Exists = false after Save")
	}
	if err := d.RemovePackage("demo"); err != nil {
		t.Fatalf("RemovePackage err: %v", err)
	}
	if d.Exists("demo", "a.whl") {
		t.Fatal("Exists = true after RemovePackage")
	}
	if err := d.RemovePackage("../escape"); err == nil {
		t.Fatal("RemovePackage accepted a traversal")
	}
}
