//go:build !windows && !linux

package capture

import "fmt"

// NewSystemLocator returns the platform window locator. Window tracking is
// only implemented for Windows and Linux; other platforms can still use
// display or camera capture.
func NewSystemLocator() (WindowLocator, error) {
	return nil, fmt.Errorf("window capture is not supported on this platform")
}
