// Package terminal implements terminal utilities.
package terminal

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"k8s.io/utils/exec"
)

// IsColor returns the number of colors the current terminal supports,
// or an error if the terminal has no color device.
func IsColor() (string, error) {
	if os.Getenv("TERM") == "dumb" {
		return "", fmt.Errorf("TERM=dumb does not support color")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	out, err := exec.New().CommandContext(ctx, "tput", "colors").CombinedOutput()
	cancel()
	if err != nil {
		return "", fmt.Errorf("'tput colors' failed %v (output %q)", err, string(out))
	}

	colors := strings.TrimSpace(string(out))
	n, err := strconv.Atoi(colors)
	if err != nil {
		return colors, err
	}
	if n < 8 {
		return colors, fmt.Errorf("color unsupported (%d colors)", n)
	}
	return colors, nil
}
