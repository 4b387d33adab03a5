package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
	"gopkg.in/yaml.v3"
)

// projectionFile is the on-disk shape of a grid definition. Angles are in
// degrees; they are converted to radians on load.
type projectionFile struct {
	Name          string   `yaml:"name"`
	SemiMajorAxis *float64 `yaml:"semi_major_axis"`
	SemiMinorAxis *float64 `yaml:"semi_minor_axis"`
	ScaleFactor   *float64 `yaml:"scale_factor"`
	OriginLat     *float64 `yaml:"origin_lat"`
	OriginLon     *float64 `yaml:"origin_lon"`
	FalseNorthing *float64 `yaml:"false_northing"`
	FalseEasting  *float64 `yaml:"false_easting"`
}

// LoadProjection reads grid parameters from a YAML file. An empty path
// returns osgb.AiryNationalGrid. Fields omitted from the file keep their
// National Grid values, so a file may override only what differs.
func LoadProjection(path string) (osgb.Params, error) {
	if path == "" {
		return osgb.AiryNationalGrid, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return osgb.Params{}, fmt.Errorf("read projection file: %w", err)
	}
	p, err := ParseProjection(data)
	if err != nil {
		return osgb.Params{}, fmt.Errorf("projection %s: %w", path, err)
	}
	return p, nil
}

// ParseProjection decodes a YAML grid definition. Unknown keys are rejected.
func ParseProjection(data []byte) (osgb.Params, error) {
	var f projectionFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return osgb.Params{}, fmt.Errorf("decode yaml: %w", err)
	}

	p := osgb.AiryNationalGrid
	if f.Name != "" {
		p.Name = f.Name
	}
	set(&p.A, f.SemiMajorAxis, 1)
	set(&p.B, f.SemiMinorAxis, 1)
	set(&p.F0, f.ScaleFactor, 1)
	set(&p.Lat0, f.OriginLat, math.Pi/180)
	set(&p.Lon0, f.OriginLon, math.Pi/180)
	set(&p.N0, f.FalseNorthing, 1)
	set(&p.E0, f.FalseEasting, 1)

	if err := p.Validate(); err != nil {
		return osgb.Params{}, err
	}
	return p, nil
}

func set(dst *float64, v *float64, scale float64) {
	if v != nil {
		*dst = *v * scale
	}
}
