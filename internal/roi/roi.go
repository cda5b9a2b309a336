package roi

import (
	"fmt"
	"image"
	"time"

	"gopkg.in/yaml.v3"

	"zauron.io/zauron/internal/action"
	"zauron.io/zauron/internal/detect"
)

// Duration decodes "500ms" / "2s" strings or bare numbers (seconds) from
// YAML, matching how intervals were written in region configs before.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds float64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Bounds is an ROI rectangle within the frame. Width or height of -1 means
// "to the frame edge".
type Bounds struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Resolve converts the bounds into a concrete rectangle for the given
// frame. It does not clamp: a rectangle that does not fit the frame is the
// caller's recoverable crop error.
func (b Bounds) Resolve(frame image.Rectangle) image.Rectangle {
	w := b.Width
	if w == -1 {
		w = frame.Dx() - b.X
	}
	h := b.Height
	if h == -1 {
		h = frame.Dy() - b.Y
	}
	return image.Rect(frame.Min.X+b.X, frame.Min.Y+b.Y, frame.Min.X+b.X+w, frame.Min.Y+b.Y+h)
}

// CooldownPolicy selects when an ROI's cooldown window starts.
type CooldownPolicy string

const (
	// CooldownFromDetection starts the window at detection time (default;
	// deterministic regardless of action latency).
	CooldownFromDetection CooldownPolicy = "detection"
	// CooldownFromAction starts the window when the dispatcher picks the
	// event up for actioning.
	CooldownFromAction CooldownPolicy = "action"
)

// TemplateParams configures a template-matching ROI.
type TemplateParams struct {
	Name      string  `yaml:"name"`
	Threshold float64 `yaml:"threshold"`
	Match     string  `yaml:"match,omitempty"` // sad | ssd | ncc
}

// OCRParams configures a text-recognition ROI.
type OCRParams struct {
	Pattern  string `yaml:"pattern"`
	Language string `yaml:"language,omitempty"`
}

// ColorParams configures a pixel-color ROI. The sample point is relative
// to the ROI bounds.
type ColorParams struct {
	X         int      `yaml:"x"`
	Y         int      `yaml:"y"`
	RGB       [3]uint8 `yaml:"rgb"`
	Tolerance uint8    `yaml:"tolerance"`
}

// MotionParams configures a motion ROI. Sensitivity is the mean frame
// delta, in percent, at which motion counts as detected.
type MotionParams struct {
	Sensitivity float64 `yaml:"sensitivity"`
}

// ROI is one configured region of interest. Immutable after load.
type ROI struct {
	ID      string      `yaml:"id"`
	Enabled *bool       `yaml:"enabled,omitempty"` // nil means enabled
	Bounds  Bounds      `yaml:"bounds"`
	Method  detect.Kind `yaml:"method"`

	Template *TemplateParams `yaml:"template,omitempty"`
	OCR      *OCRParams      `yaml:"ocr,omitempty"`
	Color    *ColorParams    `yaml:"color,omitempty"`
	Motion   *MotionParams   `yaml:"motion,omitempty"`

	Interval     Duration       `yaml:"interval"`
	Cooldown     Duration       `yaml:"cooldown"`
	Timeout      Duration       `yaml:"timeout,omitempty"`
	CooldownFrom CooldownPolicy `yaml:"cooldown_from,omitempty"`

	Action *action.Descriptor `yaml:"action"`

	Description string `yaml:"description,omitempty"`
}

// IsEnabled reports whether the ROI participates in scheduling.
func (r *ROI) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}
