package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := mainCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level=error"))

	err := cmd.Execute()
	return out.String(), err
}

func TestOrbit(t *testing.T) {
	out, err := execute(t, "orbit", "1", "0", "--max-iterations=10")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"z(0) = (0+0i)",
		"z(1) = (1+0i)",
		"z(2) = (2+0i)",
		"z(3) = (5+0i)",
		"escaped on iteration 2 with |z| = 5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "z(4)") {
		t.Errorf("orbit continued past escape:\n%s", out)
	}
}

func TestOrbit_Member(t *testing.T) {
	out, err := execute(t, "orbit", "0.25", "0", "--max-iterations=30")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "is a member") || !strings.Contains(out, "z(30) =") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestOrbit_BadArgs(t *testing.T) {
	if _, err := execute(t, "orbit", "one", "0"); err == nil {
		t.Error("got nil error for a non-numeric argument")
	}
	if _, err := execute(t, "orbit", "1"); err == nil {
		t.Error("got nil error for a missing argument")
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.png")

	configPath := filepath.Join(dir, "mandelbrot.yaml")
	config := "Width: 48\nHeight: 32\nMaxIterations: 40\nPalette: ocean\n"
	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "render", "--config", configPath, "--width=24", "--output", output); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if want := image.Rect(0, 0, 24, 32); img.Bounds() != want {
		t.Errorf("bounds %v, want %v", img.Bounds(), want)
	}
}

func TestRender_InvalidParameters(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.png")

	if _, err := execute(t, "render", "--max-iterations=0", "--output", output); err == nil {
		t.Error("got nil error for zero iterations")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("output written despite the error: %v", err)
	}
}
