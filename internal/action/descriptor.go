package action

import (
	"fmt"
)

// Kind names an executable action. Kinds are lowercase to allow fuzzy
// config writing, mirroring how routine steps are keyed.
type Kind string

const (
	KindClick       Kind = "click"
	KindDoubleClick Kind = "double_click"
	KindRightClick  Kind = "right_click"
	KindMove        Kind = "move"
	KindDrag        Kind = "drag"
	KindType        Kind = "type"
	KindPressKey    Kind = "press_key"
	KindNotify      Kind = "notify"
	KindSequence    Kind = "sequence"
)

// Descriptor is the configuration entity bound to an ROI: what to do when
// the ROI fires. Coordinates are optional; a click-like action without
// explicit coordinates targets the center of the detection bounding box,
// while explicit coordinates are relative to the capture source origin.
type Descriptor struct {
	Kind   Kind   `yaml:"kind"`
	X      *int   `yaml:"x,omitempty"`
	Y      *int   `yaml:"y,omitempty"`
	Button string `yaml:"button,omitempty"`
	Clicks int    `yaml:"clicks,omitempty"`

	// Drag target, relative to the capture source origin.
	EndX *int `yaml:"end_x,omitempty"`
	EndY *int `yaml:"end_y,omitempty"`

	Text string `yaml:"text,omitempty"` // type
	Key  string `yaml:"key,omitempty"`  // press_key

	Message string `yaml:"message,omitempty"` // notify

	Steps []Descriptor `yaml:"steps,omitempty"` // sequence
}

// Validate checks the descriptor at configuration load so that execution
// never encounters an unresolvable binding.
func (d *Descriptor) Validate() error {
	switch d.Kind {
	case KindClick, KindDoubleClick, KindRightClick:
		if (d.X == nil) != (d.Y == nil) {
			return fmt.Errorf("%s: x and y must be set together or both omitted", d.Kind)
		}
		if d.Button != "" && d.Button != "left" && d.Button != "right" && d.Button != "middle" {
			return fmt.Errorf("%s: unknown button %q", d.Kind, d.Button)
		}
		if d.Clicks < 0 {
			return fmt.Errorf("%s: clicks must be non-negative", d.Kind)
		}
	case KindMove:
		if d.X == nil || d.Y == nil {
			return fmt.Errorf("move: x and y are required")
		}
	case KindDrag:
		if d.EndX == nil || d.EndY == nil {
			return fmt.Errorf("drag: end_x and end_y are required")
		}
	case KindType:
		if d.Text == "" {
			return fmt.Errorf("type: text is required")
		}
	case KindPressKey:
		if d.Key == "" {
			return fmt.Errorf("press_key: key is required")
		}
	case KindNotify:
		if d.Message == "" {
			return fmt.Errorf("notify: message is required")
		}
	case KindSequence:
		if len(d.Steps) == 0 {
			return fmt.Errorf("sequence: at least one step is required")
		}
		for i := range d.Steps {
			if d.Steps[i].Kind == KindSequence {
				return fmt.Errorf("sequence: step %d: nested sequences are not supported", i)
			}
			if err := d.Steps[i].Validate(); err != nil {
				return fmt.Errorf("sequence: step %d: %w", i, err)
			}
		}
	case "":
		return fmt.Errorf("action kind is required")
	default:
		return fmt.Errorf("unknown action kind %q", d.Kind)
	}
	return nil
}
