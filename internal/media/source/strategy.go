package source

import (
	"viralcut/internal/media/platform"
)

// Selection is the outcome of a strategy. Audio is nil unless the strategy
// paired a video-only format with an audio-only one.
type Selection struct {
	Video platform.Format
	Audio *platform.Format
}

// Strategy picks a format from platform metadata, or reports false.
type Strategy struct {
	Name string
	Pick func(formats []platform.Format) (Selection, bool)
}

// PreferredItag selects the format with the given itag.
func PreferredItag(itag int) Strategy {
	return Strategy{
		Name: "preferred_itag",
		Pick: func(formats []platform.Format) (Selection, bool) {
			for _, f := range formats {
				if f.Itag == itag {
					return Selection{Video: f}, true
				}
			}
			return Selection{}, false
		},
	}
}

// LowestCombined selects the lowest resolution format that carries both
// audio and video. Formats with unknown height rank last; ties keep list order.
func LowestCombined() Strategy {
	return Strategy{
		Name: "lowest_combined",
		Pick: func(formats []platform.Format) (Selection, bool) {
			best := -1
			for i, f := range formats {
				if !f.Combined() {
					continue
				}
				if best < 0 || lowerHeight(f.Height, formats[best].Height) {
					best = i
				}
			}
			if best < 0 {
				return Selection{}, false
			}
			return Selection{Video: formats[best]}, true
		},
	}
}

func lowerHeight(a, b int) bool {
	if a <= 0 {
		return false
	}
	return b <= 0 || a < b
}

// FirstPairing selects the first video-only and first audio-only format.
func FirstPairing() Strategy {
	return Strategy{
		Name: "first_pairing",
		Pick: func(formats []platform.Format) (Selection, bool) {
			var video, audio *platform.Format
			for i := range formats {
				f := &formats[i]
				switch {
				case video == nil && f.HasVideo && !f.HasAudio:
					video = f
				case audio == nil && f.HasAudio && !f.HasVideo:
					audio = f
				}
			}
			if video == nil || audio == nil {
				return Selection{}, false
			}
			a := *audio
			return Selection{Video: *video, Audio: &a}, true
		},
	}
}

// DefaultStrategies is the selection order used by NewResolver: the ~360p
// progressive format first, then any combined format, then a pairing.
func DefaultStrategies() []Strategy {
	return []Strategy{
		PreferredItag(18),
		LowestCombined(),
		FirstPairing(),
	}
}
