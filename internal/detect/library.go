package detect

import (
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Template is one reference image plus its metadata.
type Template struct {
	Name     string
	Image    *image.RGBA
	Category string
	Value    int
}

// templateMeta mirrors one entry of the metadata JSON file.
type templateMeta struct {
	Category string `json:"category"`
	Value    int    `json:"value"`
}

// Library holds the reference templates loaded at startup. It is read-only
// after LoadLibrary returns.
type Library struct {
	templates map[string]*Template
}

// LoadLibrary reads every PNG/JPEG in dir and attaches metadata from
// metadataPath (optional; missing file means default metadata). Template
// names are the base file names, which is how ROI configs reference them.
func LoadLibrary(dir, metadataPath string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("template directory %s: %w", dir, err)
	}

	meta := map[string]templateMeta{}
	if metadataPath != "" {
		raw, err := os.ReadFile(metadataPath)
		if err == nil {
			if err := json.Unmarshal(raw, &meta); err != nil {
				return nil, fmt.Errorf("template metadata %s: %w", metadataPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("template metadata %s: %w", metadataPath, err)
		}
	}

	lib := &Library{templates: make(map[string]*Template)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
			continue
		}
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		m := meta[name]
		if m.Category == "" {
			m.Category = "uncategorized"
		}
		lib.templates[name] = &Template{
			Name:     name,
			Image:    img,
			Category: m.Category,
			Value:    m.Value,
		}
	}

	if len(lib.templates) == 0 {
		return nil, fmt.Errorf("no template images found in %s", dir)
	}
	return lib, nil
}

// NewLibrary builds a library from in-memory templates, primarily for tests.
func NewLibrary(templates ...*Template) *Library {
	lib := &Library{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		lib.templates[t.Name] = t
	}
	return lib
}

// Get returns the named template.
func (l *Library) Get(name string) (*Template, bool) {
	t, ok := l.templates[name]
	return t, ok
}

// Names returns all template names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	if strings.ToLower(filepath.Ext(path)) == ".png" {
		img, err = png.Decode(f)
	} else {
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}
