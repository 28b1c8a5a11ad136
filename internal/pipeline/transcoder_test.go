package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tempolab/podtempo/internal/shared"
)

func TestAtempoChain(t *testing.T) {
	tests := []struct {
		speed float64
		want  string
	}{
		{1.0, "atempo=1"},
		{1.5, "atempo=1.5"},
		{2.0, "atempo=2"},
		{3.0, "atempo=2,atempo=1.5"},
		{4.0, "atempo=2,atempo=2"},
		{5.0, "atempo=2,atempo=2,atempo=1.25"},
		{0.5, "atempo=0.5"},
		{0.25, "atempo=0.5,atempo=0.5"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%gx", tt.speed), func(t *testing.T) {
			if got := atempoChain(tt.speed); got != tt.want {
				t.Errorf("atempoChain(%g) = %q, want %q", tt.speed, got, tt.want)
			}
		})
	}
}

// fakeCommand reroutes the external tool invocation into this test binary's
// TestHelperProcess.
func fakeCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	if os.Getenv("HELPER_PROCESS_FAIL") == "1" {
		fmt.Fprintln(os.Stderr, "Error applying filter: invalid atempo value")
		os.Exit(1)
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	// Mirror ffmpeg: the last argument is the output path.
	os.WriteFile(args[len(args)-1], []byte("transformed"), 0644)
	os.Exit(0)
}

func TestFFmpegTransform(t *testing.T) {
	original := commandContext
	commandContext = fakeCommand
	t.Cleanup(func() { commandContext = original })

	t.Run("writes output on success", func(t *testing.T) {
		dir := t.TempDir()
		output := filepath.Join(dir, "out.mp3")

		ffmpeg := NewFFmpeg("ffmpeg", shared.NewLogger(nil))
		if err := ffmpeg.Transform(context.Background(), filepath.Join(dir, "in.mp3"), output, 1.5); err != nil {
			t.Fatalf("Transform() error = %v", err)
		}

		if _, err := os.Stat(output); err != nil {
			t.Errorf("output file missing: %v", err)
		}
	})

	t.Run("rejects a non-positive tempo factor", func(t *testing.T) {
		ffmpeg := NewFFmpeg("ffmpeg", shared.NewLogger(nil))
		for _, speed := range []float64{0, -1.5} {
			if err := ffmpeg.Transform(context.Background(), "in.mp3", "out.mp3", speed); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("Transform(speed=%g) error = %v, want ErrInvalidInput", speed, err)
			}
		}
	})

	t.Run("preserves tool stderr on failure", func(t *testing.T) {
		t.Setenv("HELPER_PROCESS_FAIL", "1")

		ffmpeg := NewFFmpeg("ffmpeg", shared.NewLogger(nil))
		err := ffmpeg.Transform(context.Background(), "in.mp3", "out.mp3", 1.5)
		if !errors.Is(err, shared.ErrToolFailure) {
			t.Fatalf("expected ErrToolFailure, got %v", err)
		}
		if !strings.Contains(err.Error(), "invalid atempo value") {
			t.Errorf("diagnostic not preserved: %v", err)
		}
	})
}
