package out

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	trialout "evseg/internal/modules/trial/port/out"
)

// FFProbe reads container durations with the ffprobe binary.
type FFProbe struct {
	binary string
}

func NewFFProbe(binary string) trialout.DurationProber {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return FFProbe{binary: binary}
}

func (p FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	raw := strings.TrimSpace(string(output))
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("invalid duration %v for %s", seconds, path)
	}
	return seconds, nil
}
