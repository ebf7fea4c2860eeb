package domain

// Dataset describes a video dataset a model was trained on.
type Dataset struct {
	Name           string `yaml:"name" json:"name"`
	TrainDate      string `yaml:"date" json:"date"`
	BaseResolution int    `yaml:"base_resolution" json:"base_resolution"`
	Crop           Crop   `yaml:"crop" json:"crop"`
}

// FullFrame returns a crop covering a 16:9 frame with the given height.
func FullFrame(height int) Crop {
	return Crop{XMin: 0, YMin: 0, XMax: height * 16 / 9, YMax: height}
}

// DefaultVideoDatasets lists the video datasets the benchmark suite ships with.
// Crops default to the full frame; sweep files override them per dataset.
func DefaultVideoDatasets() []Dataset {
	return []Dataset{
		{Name: "jackson-town-square", TrainDate: "2017-12-14", BaseResolution: 1080, Crop: FullFrame(1080)},
		{Name: "taipei-hires", TrainDate: "2017-04-08", BaseResolution: 720, Crop: FullFrame(720)},
		{Name: "amsterdam", TrainDate: "2017-04-10", BaseResolution: 720, Crop: FullFrame(720)},
		{Name: "archie-day", TrainDate: "2018-04-09", BaseResolution: 2160, Crop: FullFrame(2160)},
		{Name: "venice-grand-canal", TrainDate: "2018-01-17", BaseResolution: 1080, Crop: FullFrame(1080)},
		{Name: "venice-rialto", TrainDate: "2018-01-17", BaseResolution: 1080, Crop: FullFrame(1080)},
	}
}
