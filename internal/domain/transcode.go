package domain

// TranscodeRequest is one submission to the media transcoder.
type TranscodeRequest struct {
	PipelineID      string
	InputKey        string
	OutputKeyPrefix string
	Outputs         []TranscodeOutput
}

type TranscodeOutput struct {
	Key              string
	PresetID         string
	ThumbnailPattern string
}

// ImageInfo is what the image tool reports about a raster file.
type ImageInfo struct {
	Type   string
	Width  int
	Height int
}

// Map returns info in the shape stored as a descriptor's Input.
func (i ImageInfo) Map(key string) map[string]any {
	return map[string]any{
		"Key":    key,
		"Type":   i.Type,
		"Width":  i.Width,
		"Height": i.Height,
	}
}

// RasterPage is one page of a rasterized document.
type RasterPage struct {
	Number int
	Path   string
}

// Output formats accepted by the transcode handlers.
const (
	FormatWebM = "webm"
	FormatMP4  = "mp4"
	FormatMP3  = "mp3"
	FormatOGG  = "ogg"
)
