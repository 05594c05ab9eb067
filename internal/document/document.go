// Package document reads and writes models as YAML documents.
package document

import (
	"fmt"
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/results"
)

// Version is written into every document.
const Version = 1

type Document struct {
	Version      int           `yaml:"version"`
	Name         string        `yaml:"name"`
	Habitants    float64       `yaml:"habitants"`
	Divisions    []Division    `yaml:"divisions"`
	Compartments []Compartment `yaml:"compartments,omitempty"`
	Parameters   []Parameter   `yaml:"parameters,omitempty"`
	Processes    []Process     `yaml:"processes,omitempty"`
	Results      []Result      `yaml:"results,omitempty"`
}

type Division struct {
	Name       string     `yaml:"name"`
	Categories []Category `yaml:"categories"`
}

type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type Compartment struct {
	Name       string  `yaml:"name"`
	Value      float64 `yaml:"value"`
	Definition string  `yaml:"definition,omitempty"`
}

type Parameter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Definition  string `yaml:"definition,omitempty"`
}

type Segment struct {
	Start      float64 `yaml:"start"`
	Definition string  `yaml:"definition"`
}

type Process struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Segments    []Segment `yaml:"segments"`
}

type Result struct {
	Name      string                 `yaml:"name"`
	XLabel    string                 `yaml:"x_label,omitempty"`
	YLabel    string                 `yaml:"y_label,omitempty"`
	Functions []results.FunctionSpec `yaml:"functions,omitempty"`
}

// FromModel captures m and the given result definitions.
func FromModel(m *model.Model, res ...*results.Result) *Document {
	doc := &Document{
		Version:   Version,
		Name:      m.Population.Name,
		Habitants: m.Population.Habitants,
	}
	for _, d := range m.Divisions() {
		div := Division{Name: d.Name}
		for _, c := range d.Categories {
			div.Categories = append(div.Categories, Category{Name: c.Name, Description: c.Description})
		}
		doc.Divisions = append(doc.Divisions, div)
	}
	for _, c := range m.Compartments() {
		doc.Compartments = append(doc.Compartments, Compartment{Name: c.Name, Value: c.Value, Definition: c.Definition})
	}
	for _, p := range m.Parameters() {
		doc.Parameters = append(doc.Parameters, Parameter{Name: p.Name, Description: p.Description, Definition: p.Definition})
	}
	for _, p := range m.Processes() {
		proc := Process{Name: p.Name, Description: p.Description}
		for _, s := range p.Segments {
			proc.Segments = append(proc.Segments, Segment{Start: s.Start, Definition: s.Definition})
		}
		doc.Processes = append(doc.Processes, proc)
	}
	for _, r := range res {
		doc.Results = append(doc.Results, Result{
			Name:      r.Name,
			XLabel:    r.XLabel,
			YLabel:    r.YLabel,
			Functions: append([]results.FunctionSpec(nil), r.Functions...),
		})
	}
	return doc
}

// Model rebuilds the model. Parameters and processes are added in document
// order, compartment definitions last since they may reference anything.
func (d *Document) Model() (*model.Model, error) {
	specs := make([]model.DivisionSpec, 0, len(d.Divisions))
	for _, div := range d.Divisions {
		spec := model.DivisionSpec{Name: div.Name}
		for _, c := range div.Categories {
			spec.Categories = append(spec.Categories, model.CategorySpec{Name: c.Name, Description: c.Description})
		}
		specs = append(specs, spec)
	}
	m, err := model.New(d.Name, d.Habitants, specs...)
	if err != nil {
		return nil, err
	}
	if len(d.Compartments) > 0 {
		for _, c := range m.Compartments() {
			c.Value = 0
		}
		for _, c := range d.Compartments {
			if err := m.SetCompartmentValue(c.Name, c.Value); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range d.Parameters {
		if _, err := m.AddParameter(p.Name, p.Description, p.Definition); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}
	for _, p := range d.Processes {
		segs := make([]model.TimeSegment, 0, len(p.Segments))
		for _, s := range p.Segments {
			segs = append(segs, model.TimeSegment{Start: s.Start, Definition: s.Definition})
		}
		if _, err := m.AddProcess(p.Name, p.Description, segs...); err != nil {
			return nil, fmt.Errorf("process %q: %w", p.Name, err)
		}
	}
	for _, c := range d.Compartments {
		if c.Definition == "" {
			continue
		}
		if err := m.SetCompartmentDefinition(c.Name, c.Definition); err != nil {
			return nil, fmt.Errorf("compartment %q: %w", c.Name, err)
		}
	}
	return m, nil
}

// NewResults creates empty sinks for the stored result definitions.
func (d *Document) NewResults(labels []string) []*results.Result {
	out := make([]*results.Result, 0, len(d.Results))
	for _, spec := range d.Results {
		r := results.New(spec.Name, labels)
		if spec.XLabel != "" || spec.YLabel != "" {
			r.SetAxisLabels(spec.XLabel, spec.YLabel)
		}
		for _, fn := range spec.Functions {
			r.AddFunction(fn.Expression, fn.Color, fn.Width)
		}
		out = append(out, r)
	}
	return out
}

func Marshal(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Version > Version {
		return nil, fmt.Errorf("document version %d is newer than supported version %d", doc.Version, Version)
	}
	return &doc, nil
}

func fileSystem(fss []vfs.FileSystem) vfs.FileSystem {
	if len(fss) > 0 && fss[0] != nil {
		return fss[0]
	}
	return osfs.OsFs
}

// Load reads a document from path, on the OS filesystem unless another one
// is given.
func Load(path string, fss ...vfs.FileSystem) (*Document, error) {
	data, err := vfs.ReadFile(fileSystem(fss), path)
	if err != nil {
		return nil, err
	}
	doc, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}
	return doc, nil
}

func Save(path string, doc *Document, fss ...vfs.FileSystem) error {
	fs := fileSystem(fss)
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return vfs.WriteFile(fs, path, data, 0o644)
}

// LoadModel reads path and rebuilds its model.
func LoadModel(path string, fss ...vfs.FileSystem) (*model.Model, *Document, error) {
	doc, err := Load(path, fss...)
	if err != nil {
		return nil, nil, err
	}
	m, err := doc.Model()
	if err != nil {
		return nil, nil, fmt.Errorf("document %s: %w", path, err)
	}
	return m, doc, nil
}
