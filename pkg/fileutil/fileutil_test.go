package fileutil

import (
	"bytes"
	"os"
	"testing"
)

func TestWriteTempFile(t *testing.T) {
	txt := []byte("hello world")
	p, err := WriteTempFile(txt)
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(p)

	if !Exist(p) {
		t.Fatalf("%q expected to exist", p)
	}

	d, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(txt, d) {
		t.Fatalf("expected %q, got %q", string(txt), string(d))
	}
}

func TestIsDirWriteable(t *testing.T) {
	dir := MkTmpDir("", "fileutil")
	defer os.RemoveAll(dir)

	if err := IsDirWriteable(dir); err != nil {
		t.Fatal(err)
	}
	if err := IsDirWriteable("no-such-dir-expected-nil"); err != nil {
		t.Fatal(err)
	}
}
