//go:build linux

package capture

import (
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
)

// systemLocator resolves window rectangles by parsing `wmctrl -lG` output.
type systemLocator struct{}

// NewSystemLocator returns the platform window locator. It requires the
// wmctrl utility to be installed.
func NewSystemLocator() (WindowLocator, error) {
	if _, err := exec.LookPath("wmctrl"); err != nil {
		return nil, fmt.Errorf("wmctrl not found in PATH: %w", err)
	}
	return &systemLocator{}, nil
}

func (l *systemLocator) Locate(title string) (image.Rectangle, error) {
	out, err := exec.Command("wmctrl", "-lG").Output()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("wmctrl failed: %w", ErrUnavailable)
	}

	needle := strings.ToLower(title)
	for _, line := range strings.Split(string(out), "\n") {
		// <id> <desktop> <x> <y> <w> <h> <host> <title...>
		parts := strings.Fields(line)
		if len(parts) < 8 {
			continue
		}
		windowTitle := strings.ToLower(strings.Join(parts[7:], " "))
		if !strings.Contains(windowTitle, needle) {
			continue
		}
		vals := make([]int, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.Atoi(parts[2+i])
			if err != nil {
				return image.Rectangle{}, fmt.Errorf("parse wmctrl geometry %q: %w", parts[2+i], err)
			}
			vals[i] = v
		}
		return image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3]), nil
	}
	return image.Rectangle{}, fmt.Errorf("window %q not found: %w", title, ErrUnavailable)
}
