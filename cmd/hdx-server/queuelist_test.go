package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadQueueList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.txt")
	content := "# morning\r\nsongs/a.wav\n\n/abs/b.opf\nfile:///c.wav\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readQueueList(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "songs/a.wav"), "/abs/b.opf", "file:///c.wav"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("HDX_TEST_PORT", "9100")
	if got := envInt("HDX_TEST_PORT", 1); got != 9100 {
		t.Fatalf("envInt = %d", got)
	}
	t.Setenv("HDX_TEST_PORT", "nope")
	if got := envInt("HDX_TEST_PORT", 1); got != 1 {
		t.Fatalf("envInt fallback = %d", got)
	}
}
