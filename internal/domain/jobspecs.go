package domain

const (
	JobTranscodeVideo = "TranscodeVideo"
	JobTranscodeAudio = "TranscodeAudio"
	JobConvertToPDF   = "ConvertToPDF"
	JobResizeImage    = "ResizeImage"
	JobNormalizeImage = "NormalizeImage"
)

func TranscodeVideoJob(inputKey, outputKeyPrefix string, formats ...string) JobSpecification {
	if len(formats) == 0 {
		formats = []string{FormatWebM, FormatMP4}
	}
	return JobSpecification{
		JobName:         JobTranscodeVideo,
		InputKey:        inputKey,
		OutputKeyPrefix: outputKeyPrefix,
		ExtraParams:     map[string]any{"OutputFormats": formats},
	}
}

func TranscodeAudioJob(inputKey, outputKeyPrefix string, formats ...string) JobSpecification {
	if len(formats) == 0 {
		formats = []string{FormatMP3}
	}
	return JobSpecification{
		JobName:         JobTranscodeAudio,
		InputKey:        inputKey,
		OutputKeyPrefix: outputKeyPrefix,
		ExtraParams:     map[string]any{"OutputFormats": formats},
	}
}

func ConvertToPDFJob(inputKey, outputKeyPrefix string) JobSpecification {
	return JobSpecification{
		JobName:         JobConvertToPDF,
		InputKey:        inputKey,
		OutputKeyPrefix: outputKeyPrefix,
		ExtraParams:     map[string]any{"OutputKey": "output.pdf"},
	}
}

// ResizeImageJob keeps an untouched copy plus three bounded renditions.
func ResizeImageJob(inputKey, outputKeyPrefix string) JobSpecification {
	return JobSpecification{
		JobName:         JobResizeImage,
		InputKey:        inputKey,
		OutputKeyPrefix: outputKeyPrefix,
		ExtraParams: map[string]any{"PreferredOutputs": []PreferredOutput{
			{Width: 0, Height: 0, Key: "Original.jpg"},
			{Width: 1200, Height: 1200, Key: "Regular.jpg"},
			{Width: 480, Height: 480, Key: "Small.jpg"},
			{Width: 160, Height: 160, Key: "Thumbnail.jpg"},
		}},
	}
}

func NormalizeImageJob(inputKey, outputKeyPrefix string) JobSpecification {
	return JobSpecification{
		JobName:         JobNormalizeImage,
		InputKey:        inputKey,
		OutputKeyPrefix: outputKeyPrefix,
		ExtraParams: map[string]any{"PreferredOutputs": []PreferredOutput{
			{Width: 200, Height: 200, Key: "200x200-normalized.jpg"},
			{Width: 300, Height: 300, Key: "300x300-normalized.jpg"},
		}},
	}
}

// DefaultJob returns the prebuilt specification for a known job name, or
// false when name has no defaults.
func DefaultJob(name, inputKey, outputKeyPrefix string) (JobSpecification, bool) {
	switch name {
	case JobTranscodeVideo:
		return TranscodeVideoJob(inputKey, outputKeyPrefix), true
	case JobTranscodeAudio:
		return TranscodeAudioJob(inputKey, outputKeyPrefix), true
	case JobConvertToPDF:
		return ConvertToPDFJob(inputKey, outputKeyPrefix), true
	case JobResizeImage:
		return ResizeImageJob(inputKey, outputKeyPrefix), true
	case JobNormalizeImage:
		return NormalizeImageJob(inputKey, outputKeyPrefix), true
	}
	return JobSpecification{}, false
}
