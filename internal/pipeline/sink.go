package pipeline

import (
	"image"
	"log"

	"github.com/ironsheep/target-vision/internal/camera"
	vimg "github.com/ironsheep/target-vision/internal/imaging"
)

// Sink accepts output frames, for example an MJPEG stream.
type Sink interface {
	PutFrame(img image.Image)
}

// SinkListener pushes the annotated frame to proc and the mask to bin, each
// scaled to width x height. Either sink may be nil.
func SinkListener(proc, bin Sink, width, height int) Listener {
	return ListenerFunc(func(frame image.Image, res Result) {
		if proc != nil {
			out := frame
			if res.Annotated != nil {
				out = res.Annotated
			}
			if !vimg.IsEmpty(out) {
				proc.PutFrame(vimg.FitOutput(out, width, height))
			}
		}
		if bin != nil && res.Mask != nil {
			bin.PutFrame(vimg.FitOutput(res.Mask, width, height))
		}
	})
}

type displaySink struct {
	display camera.Display
	name    string
}

// DisplaySink shows every frame put into it on d under name.
func DisplaySink(d camera.Display, name string) Sink {
	return displaySink{display: d, name: name}
}

func (s displaySink) PutFrame(img image.Image) {
	if err := s.display.Show(s.name, img); err != nil {
		log.Printf("[pipeline] display %s: %v", s.name, err)
	}
}
