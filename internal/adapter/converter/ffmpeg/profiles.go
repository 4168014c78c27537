package ffmpeg

// Profile is the ffmpeg encoding a preset id maps to. Args go between the
// input and the output path.
type Profile struct {
	Args []string
	// AudioOnly profiles produce no thumbnails and report no dimensions.
	AudioOnly bool
}

// DefaultProfiles covers the presets the default configuration names.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"webm-av1": {Args: []string{
			"-c:v", "libaom-av1",
			"-crf", "30",
			"-b:v", "0",
			"-cpu-used", "4",
			"-row-mt", "1",
			"-c:a", "libopus",
			"-b:a", "128k",
		}},
		"mp4-h264": {Args: []string{
			"-c:v", "libx264",
			"-crf", "23",
			"-preset", "medium",
			"-c:a", "aac",
			"-b:a", "128k",
			"-movflags", "+faststart",
		}},
		"mp3-320k": {AudioOnly: true, Args: []string{
			"-vn",
			"-c:a", "libmp3lame",
			"-b:a", "320k",
		}},
		"ogg-opus": {AudioOnly: true, Args: []string{
			"-vn",
			"-c:a", "libopus",
			"-b:a", "128k",
		}},
	}
}

func encodeArgs(inputPath, outputPath string, p Profile) []string {
	args := []string{"-i", inputPath}
	args = append(args, p.Args...)
	return append(args, "-y", outputPath)
}

func thumbnailArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-vframes", "1",
		"-ss", "00:00:01",
		"-f", "image2",
		"-y",
		outputPath,
	}
}

func probeArgs(inputPath string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}
}
