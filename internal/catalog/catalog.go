// Package catalog resolves machine and material ids to the physical
// constants the engine needs.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/config"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownMachine  = errors.New("machine_id not found")
	ErrUnknownMaterial = errors.New("material_id not found")
)

// Machine is a machine tool and the grid it draws from.
type Machine struct {
	ID              string  `json:"id" yaml:"id"`
	Model           string  `json:"model" yaml:"model"`
	StandbyPowerKW  float64 `json:"standby_power_kw" yaml:"standby_power_kw"`
	MaxPowerKW      float64 `json:"max_power_kw" yaml:"max_power_kw"`
	CarbonIntensity float64 `json:"carbon_intensity" yaml:"carbon_intensity"`
}

// Material is a workpiece material.
type Material struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	KcValue float64 `json:"kc_value" yaml:"kc_value"`
	Density float64 `json:"density" yaml:"density"`
}

// IsAluminum reports whether the material looks like an aluminium alloy,
// judged from its id and name.
func (m Material) IsAluminum() bool {
	v := strings.ToLower(m.ID + " " + m.Name)
	return strings.Contains(v, "aluminum") || strings.Contains(v, "alümin") || strings.Contains(v, "alu")
}

// DefaultMachines are the built-in machines.
var DefaultMachines = []Machine{
	{ID: "cnc_1", Model: "Mazak", StandbyPowerKW: 1.5, MaxPowerKW: 15, CarbonIntensity: 0.44},
	{ID: "cnc_2", Model: "Doosan", StandbyPowerKW: 2.2, MaxPowerKW: 20, CarbonIntensity: 0.44},
	{ID: "cnc_3", Model: "DMG Mori", StandbyPowerKW: 2.5, MaxPowerKW: 25, CarbonIntensity: 0.44},
	{ID: "lathe_1", Model: "Haas Lathe", StandbyPowerKW: 1.2, MaxPowerKW: 12, CarbonIntensity: 0.44},
	{ID: "mill_1", Model: "Hurco Mill", StandbyPowerKW: 1.8, MaxPowerKW: 18, CarbonIntensity: 0.44},
}

// DefaultMaterials are the built-in materials.
var DefaultMaterials = []Material{
	{ID: "mat_4140", Name: "Steel 4140", KcValue: 2400, Density: 7850},
	{ID: "mat_6061", Name: "Aluminum 6061", KcValue: 800, Density: 2700},
	{ID: "mat_304", Name: "Stainless 304", KcValue: 2800, Density: 8000},
	{ID: "mat_ti64", Name: "Titanium Ti-6Al-4V", KcValue: 1400, Density: 4430},
	{ID: "mat_c360", Name: "Brass C360", KcValue: 1200, Density: 8500},
}

// Catalog is an immutable set of machines and materials. It is safe for
// concurrent use; reloading builds a new Catalog.
type Catalog struct {
	machines  map[string]Machine
	materials map[string]Material
}

// Default returns a catalog of the built-in entries only.
func Default() *Catalog {
	c, _ := New(DefaultMachines, DefaultMaterials)
	return c
}

// New builds a catalog from the given entries. Later entries replace
// earlier ones with the same id.
func New(machines []Machine, materials []Material) (*Catalog, error) {
	c := &Catalog{
		machines:  make(map[string]Machine, len(machines)),
		materials: make(map[string]Material, len(materials)),
	}
	for _, m := range machines {
		if err := m.validate(); err != nil {
			return nil, err
		}
		c.machines[m.ID] = m
	}
	for _, m := range materials {
		if err := m.validate(); err != nil {
			return nil, err
		}
		c.materials[m.ID] = m
	}
	return c, nil
}

// libraryFile is the YAML layout of an external library file.
type libraryFile struct {
	Machines  []Machine  `yaml:"machines"`
	Materials []Material `yaml:"materials"`
}

// FromConfig layers the configured library (the YAML file first, then the
// inline TOML entries) over the built-in defaults.
func FromConfig(lib config.LibraryConfig) (*Catalog, error) {
	machines := append([]Machine(nil), DefaultMachines...)
	materials := append([]Material(nil), DefaultMaterials...)

	if lib.File != "" {
		data, err := os.ReadFile(lib.File)
		if err != nil {
			return nil, fmt.Errorf("reading library file: %w", err)
		}
		var f libraryFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing library file %s: %w", lib.File, err)
		}
		machines = append(machines, f.Machines...)
		materials = append(materials, f.Materials...)
	}

	for _, e := range lib.Machines {
		machines = append(machines, Machine(e))
	}
	for _, e := range lib.Materials {
		materials = append(materials, Material(e))
	}

	return New(machines, materials)
}

// Machine looks up a machine by id.
func (c *Catalog) Machine(id string) (Machine, error) {
	m, ok := c.machines[strings.TrimSpace(id)]
	if !ok {
		return Machine{}, fmt.Errorf("%w: %q", ErrUnknownMachine, id)
	}
	return m, nil
}

// Material looks up a material by id.
func (c *Catalog) Material(id string) (Material, error) {
	m, ok := c.materials[strings.TrimSpace(id)]
	if !ok {
		return Material{}, fmt.Errorf("%w: %q", ErrUnknownMaterial, id)
	}
	return m, nil
}

// Machines returns all machines sorted by id.
func (c *Catalog) Machines() []Machine {
	out := make([]Machine, 0, len(c.machines))
	for _, m := range c.machines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Materials returns all materials sorted by id.
func (c *Catalog) Materials() []Material {
	out := make([]Material, 0, len(c.materials))
	for _, m := range c.materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m Machine) validate() error {
	switch {
	case strings.TrimSpace(m.ID) == "":
		return errors.New("machine id must not be empty")
	case !finite(m.StandbyPowerKW) || m.StandbyPowerKW < 0:
		return fmt.Errorf("machine %s: standby_power_kw must be >= 0", m.ID)
	case !finite(m.CarbonIntensity) || m.CarbonIntensity <= 0:
		return fmt.Errorf("machine %s: carbon_intensity must be > 0", m.ID)
	case !finite(m.MaxPowerKW) || m.MaxPowerKW < 0:
		return fmt.Errorf("machine %s: max_power_kw must be >= 0", m.ID)
	}
	return nil
}

func (m Material) validate() error {
	switch {
	case strings.TrimSpace(m.ID) == "":
		return errors.New("material id must not be empty")
	case !finite(m.KcValue) || m.KcValue <= 0:
		return fmt.Errorf("material %s: kc_value must be > 0", m.ID)
	case !finite(m.Density) || m.Density <= 0:
		return fmt.Errorf("material %s: density must be > 0", m.ID)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
