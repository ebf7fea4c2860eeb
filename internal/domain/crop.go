package domain

import "fmt"

// Crop is a pixel region of a video frame, in the coordinates of the
// dataset's native resolution.
type Crop struct {
	XMin int `yaml:"xmin" json:"xmin"`
	YMin int `yaml:"ymin" json:"ymin"`
	XMax int `yaml:"xmax" json:"xmax"`
	YMax int `yaml:"ymax" json:"ymax"`
}

// Scale multiplies every coordinate by mult, truncating toward zero.
func (c Crop) Scale(mult float64) Crop {
	return Crop{
		XMin: int(float64(c.XMin) * mult),
		YMin: int(float64(c.YMin) * mult),
		XMax: int(float64(c.XMax) * mult),
		YMax: int(float64(c.YMax) * mult),
	}
}

// Valid reports whether the region has positive area and non-negative origin.
func (c Crop) Valid() bool {
	return c.XMin >= 0 && c.YMin >= 0 && c.XMax > c.XMin && c.YMax > c.YMin
}

// ResolutionType selects which decoded resolution a video config targets.
type ResolutionType string

const (
	Resolution480p  ResolutionType = "480p"
	ResolutionHires ResolutionType = "hires"
)

// Multiplier returns the crop scale factor for r given the dataset's native
// vertical resolution.
func (r ResolutionType) Multiplier(baseResolution int) (float64, error) {
	switch r {
	case ResolutionHires:
		return 1, nil
	case Resolution480p:
		if baseResolution <= 0 {
			return 0, InvalidConfig("resolution.multiplier", "", "base resolution must be positive, got %d", baseResolution)
		}
		return 480.0 / float64(baseResolution), nil
	default:
		return 0, InvalidConfig("resolution.multiplier", "", "unknown resolution type %q", string(r))
	}
}

func (r ResolutionType) String() string { return string(r) }

// ParseResolutionType validates a user-supplied resolution type.
func ParseResolutionType(s string) (ResolutionType, error) {
	switch ResolutionType(s) {
	case Resolution480p, ResolutionHires:
		return ResolutionType(s), nil
	}
	return "", fmt.Errorf("unsupported resolution type %q (expected 480p|hires)", s)
}
