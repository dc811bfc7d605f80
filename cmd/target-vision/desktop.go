package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/target-vision/internal/camera"
	"github.com/ironsheep/target-vision/internal/pipeline"
	"github.com/ironsheep/target-vision/internal/recorder"
)

var desktopOpts struct {
	images     string
	watch      bool
	outDir     string
	window     bool
	recordPath string
}

var desktopCmd = &cobra.Command{
	Use:   "desktop",
	Short: "Run the pipeline on image files without a robot",
	Long: `Runs the pipeline in debug mode over a single image or a directory of
images. Telemetry is skipped and every frame starts from heading 0.`,
	Args: cobra.NoArgs,
	RunE: runDesktop,
}

func init() {
	f := desktopCmd.Flags()
	f.StringVar(&desktopOpts.images, "images", "", "Image file or directory of images")
	f.BoolVar(&desktopOpts.watch, "watch", false, "Keep waiting for new images in the directory")
	f.StringVar(&desktopOpts.outDir, "out", "", "Save annotated and binarized frames to this directory")
	f.BoolVar(&desktopOpts.window, "window", false, "Show frames in a window (needs a gocv build)")
	f.StringVar(&desktopOpts.recordPath, "record", "", "Record frame outcomes to this sqlite database")
	desktopCmd.MarkFlagRequired("images")
}

func runDesktop(cmd *cobra.Command, args []string) error {
	pc, err := loadPipelineConfig()
	if err != nil {
		return err
	}

	src, err := camera.NewFolderSource(desktopOpts.images)
	if err != nil {
		return err
	}
	defer src.Close()
	if desktopOpts.watch {
		if err := src.Watch(); err != nil {
			return err
		}
	}

	var displays []camera.Display
	defer func() {
		for _, d := range displays {
			d.Close()
		}
	}()
	if desktopOpts.outDir != "" {
		d, err := camera.NewFileDisplay(desktopOpts.outDir)
		if err != nil {
			return err
		}
		displays = append(displays, d)
	}
	if desktopOpts.window {
		d, err := camera.NewWindowDisplay()
		if err != nil {
			return fmt.Errorf("cannot open window: %w", err)
		}
		displays = append(displays, d)
	}

	listeners := []pipeline.Listener{pipeline.ListenerFunc(logFrame)}
	for _, d := range displays {
		listeners = append(listeners, pipeline.SinkListener(
			pipeline.DisplaySink(d, "Proc"), pipeline.DisplaySink(d, "Bin"),
			pc.GetOutputWidth(), pc.GetOutputHeight()))
	}

	if desktopOpts.recordPath != "" {
		rec, err := recorder.Open(desktopOpts.recordPath)
		if err != nil {
			return err
		}
		defer rec.Close()
		session, err := rec.StartSession(src.Name(), pc.JSON())
		if err != nil {
			return err
		}
		log.Printf("Recording session %s to %s", session, desktopOpts.recordPath)
		listeners = append(listeners, rec.Listener(session))
	}

	p, err := pipeline.New(pipeline.ConfigFrom(pc, true), nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := pipeline.NewRunner(p).Run(ctx, src, pipeline.Listeners(listeners...))
	fmt.Printf("frames=%d found=%d errors=%d\n", stats.Frames, stats.Found, stats.Errors)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func logFrame(frame image.Image, res pipeline.Result) {
	if res.Found {
		log.Printf("target found: offset=%.2f heading=%.2f candidates=%d pairs=%d (%v)",
			res.Offset, res.Heading, len(res.Candidates), len(res.Pairs), res.Elapsed)
		return
	}
	log.Printf("no target: candidates=%d (%v)", len(res.Candidates), res.Elapsed)
}
