//go:build windows

package capture

import (
	"fmt"
	"image"
	"syscall"
	"unsafe"
)

var (
	user32            = syscall.NewLazyDLL("user32.dll")
	procFindWindow    = user32.NewProc("FindWindowW")
	procGetWindowRect = user32.NewProc("GetWindowRect")
)

type winRect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// systemLocator resolves window rectangles through the win32 API.
type systemLocator struct{}

// NewSystemLocator returns the platform window locator.
func NewSystemLocator() (WindowLocator, error) {
	return &systemLocator{}, nil
}

func (l *systemLocator) Locate(title string) (image.Rectangle, error) {
	titlePtr, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return image.Rectangle{}, err
	}

	hwnd, _, _ := procFindWindow.Call(0, uintptr(unsafe.Pointer(titlePtr)))
	if hwnd == 0 {
		return image.Rectangle{}, fmt.Errorf("window %q not found: %w", title, ErrUnavailable)
	}

	var rect winRect
	ret, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rect)))
	if ret == 0 {
		return image.Rectangle{}, fmt.Errorf("window %q rect lookup failed: %w", title, ErrUnavailable)
	}

	return image.Rect(int(rect.Left), int(rect.Top), int(rect.Right), int(rect.Bottom)), nil
}
