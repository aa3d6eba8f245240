package demux

import (
	"fmt"

	"github.com/famomatic/ttaudio/internal/session"
)

// Factory dispatches session strategies to decoders.
type Factory struct {
	Container session.Decoder
	RawAudio  session.Decoder
}

// NewFactory returns a factory using ffmpeg at ffmpegPath for containers.
func NewFactory(ffmpegPath string) *Factory {
	return &Factory{
		Container: NewFFmpeg(ffmpegPath),
		RawAudio:  Raw{},
	}
}

// Decoder implements session.DecoderFactory.
func (f *Factory) Decoder(strategy session.Strategy) (session.Decoder, error) {
	var dec session.Decoder
	switch strategy {
	case session.StrategyContainer:
		dec = f.Container
	case session.StrategyRawAudio:
		dec = f.RawAudio
	}
	if dec == nil {
		return nil, fmt.Errorf("no decoder for strategy %s", strategy)
	}
	return dec, nil
}
