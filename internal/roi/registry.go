package roi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"zauron.io/zauron/internal/detect"
)

// Registry is the read-only set of configured ROIs. All binding validation
// happens in Load; nothing downstream re-validates, so a Registry that
// loaded successfully can always be scheduled.
type Registry struct {
	ordered []*ROI
	byID    map[string]*ROI
}

type regionsFile struct {
	Regions []*ROI `yaml:"regions"`
}

// Load reads an ROI config file and validates every region against the
// template library. Any invalid binding fails the whole load.
func Load(path string, library *detect.Library) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("regions config %s: %w", path, err)
	}
	var file regionsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("regions config %s: %w", path, err)
	}
	return New(file.Regions, library)
}

// New builds a registry from in-memory ROI definitions.
func New(regions []*ROI, library *detect.Library) (*Registry, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("no regions configured")
	}

	reg := &Registry{byID: make(map[string]*ROI, len(regions))}
	for i, r := range regions {
		if err := validate(r, library); err != nil {
			return nil, fmt.Errorf("region %d (%s): %w", i, r.ID, err)
		}
		if _, dup := reg.byID[r.ID]; dup {
			return nil, fmt.Errorf("region %d: duplicate id %q", i, r.ID)
		}
		reg.byID[r.ID] = r
		reg.ordered = append(reg.ordered, r)
	}
	return reg, nil
}

// List returns all ROIs in configuration order.
func (reg *Registry) List() []*ROI {
	return reg.ordered
}

// ByID returns the ROI with the given identifier.
func (reg *Registry) ByID(id string) (*ROI, bool) {
	r, ok := reg.byID[id]
	return r, ok
}

func validate(r *ROI, library *detect.Library) error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !r.Method.Known() {
		return fmt.Errorf("unknown detection method %q", r.Method)
	}
	if r.Interval.Std() <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if r.Cooldown.Std() < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	if r.Bounds.Width == 0 || r.Bounds.Height == 0 {
		return fmt.Errorf("bounds must have non-zero width and height (-1 means full extent)")
	}
	if r.CooldownFrom == "" {
		r.CooldownFrom = CooldownFromDetection
	}
	if r.CooldownFrom != CooldownFromDetection && r.CooldownFrom != CooldownFromAction {
		return fmt.Errorf("unknown cooldown_from policy %q", r.CooldownFrom)
	}

	switch r.Method {
	case detect.KindTemplate:
		if r.Template == nil {
			return fmt.Errorf("template method requires template params")
		}
		if r.Template.Threshold <= 0 || r.Template.Threshold > 1 {
			return fmt.Errorf("template threshold must be in (0,1]")
		}
		if library == nil {
			return fmt.Errorf("template method requires a template library")
		}
		if _, ok := library.Get(r.Template.Name); !ok {
			return fmt.Errorf("template %q not found in library", r.Template.Name)
		}
	case detect.KindOCR:
		if r.OCR == nil || r.OCR.Pattern == "" {
			return fmt.Errorf("ocr method requires a pattern")
		}
	case detect.KindColor:
		if r.Color == nil {
			return fmt.Errorf("color method requires color params")
		}
		if r.Color.X < 0 || r.Color.Y < 0 {
			return fmt.Errorf("color sample point must be non-negative")
		}
	case detect.KindMotion:
		if r.Motion == nil {
			return fmt.Errorf("motion method requires motion params")
		}
		if r.Motion.Sensitivity <= 0 || r.Motion.Sensitivity > 100 {
			return fmt.Errorf("motion sensitivity must be in (0,100]")
		}
	}

	if r.Action == nil {
		return fmt.Errorf("action binding is required")
	}
	if err := r.Action.Validate(); err != nil {
		return fmt.Errorf("action: %w", err)
	}
	return nil
}
