package domain

import "strconv"

type ProbeFormat struct {
	FormatName string            `json:"format_name"`
	FormatLong string            `json:"format_long_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	NbStreams  int               `json:"nb_streams"`
	Tags       map[string]string `json:"tags"`
}

type ProbeStream struct {
	Index      int    `json:"index"`
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   string `json:"duration"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
	RawJSON string        `json:"-"`
}

func (p *ProbeResult) VideoStream() *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			return &p.Streams[i]
		}
	}
	return nil
}

func (p *ProbeResult) AudioStream() *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

func (p *ProbeResult) Dimensions() (width, height int) {
	vs := p.VideoStream()
	if vs != nil {
		return vs.Width, vs.Height
	}
	return 0, 0
}

// DurationSeconds prefers the container duration and falls back to the
// first stream that reports one.
func (p *ProbeResult) DurationSeconds() float64 {
	if d := ParseDuration(p.Format.Duration); d > 0 {
		return d
	}
	for _, s := range p.Streams {
		if d := ParseDuration(s.Duration); d > 0 {
			return d
		}
	}
	return 0
}

func ParseDuration(durationStr string) float64 {
	if durationStr == "" || durationStr == "N/A" {
		return 0
	}
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0
	}
	return duration
}
