package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/target-vision/internal/camera"
	"github.com/ironsheep/target-vision/internal/config"
	"github.com/ironsheep/target-vision/internal/pipeline"
	"github.com/ironsheep/target-vision/internal/recorder"
	"github.com/ironsheep/target-vision/internal/stream"
	"github.com/ironsheep/target-vision/internal/telemetry"
)

var runOpts struct {
	streamAddr   string
	telemetryURL string
	serialPort   string
	baudRate     int
	recordPath   string
}

var runCmd = &cobra.Command{
	Use:   "run [frc.json]",
	Short: "Track targets on the configured USB cameras",
	Long: `Reads the camera configuration (default ` + config.DefaultFRCPath + `), starts
telemetry in server or client mode, opens every camera and runs the pipeline
on the first one. Annotated and binarized frames are served as MJPEG.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVision,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.streamAddr, "stream-addr", ":1181", "Address for the MJPEG streams and telemetry websocket")
	f.StringVar(&runOpts.telemetryURL, "telemetry-url", "", "Robot telemetry URL in client mode (default derived from the team number)")
	f.StringVar(&runOpts.serialPort, "serial", "", "Serial device bridged to the telemetry table")
	f.IntVar(&runOpts.baudRate, "baud", 115200, "Serial baud rate")
	f.StringVar(&runOpts.recordPath, "record", "", "Record frame outcomes to this sqlite database")
}

func runVision(cmd *cobra.Command, args []string) error {
	frcPath := config.DefaultFRCPath
	if len(args) > 0 {
		frcPath = args[0]
	}
	frc, err := config.ReadFRCConfig(frcPath)
	if err != nil {
		return err
	}
	if len(frc.Cameras) == 0 {
		return fmt.Errorf("config error in '%s': no cameras configured", frcPath)
	}
	pc, err := loadPipelineConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := telemetry.NewMemoryTable()
	mux := http.NewServeMux()
	streams := stream.NewServer()
	streams.Register(mux)

	var wg sync.WaitGroup
	if frc.Server {
		log.Printf("Setting up telemetry server on %s%s", runOpts.streamAddr, telemetry.Path)
		mux.Handle(telemetry.Path, telemetry.NewHub(table))
	} else {
		url := runOpts.telemetryURL
		if url == "" {
			url = telemetry.RobotURL(frc.Team)
		}
		log.Printf("Setting up telemetry client for team %d at %s", frc.Team, url)
		wg.Add(1)
		go func() {
			defer wg.Done()
			mirrorRobot(ctx, url, table)
		}()
	}

	if runOpts.serialPort != "" {
		bridge, err := telemetry.OpenSerial(runOpts.serialPort, telemetry.PortOptions{BaudRate: runOpts.baudRate}, table)
		if err != nil {
			return err
		}
		defer bridge.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Serial bridge stopped: %v", err)
			}
		}()
	}

	httpServer := &http.Server{Addr: runOpts.streamAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Stream server error: %v", err)
			stop()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	var sources []camera.Source
	for _, cam := range frc.Cameras {
		log.Printf("Starting camera '%s' on %s", cam.Name, cam.Path)
		src, err := camera.OpenUSB(cam)
		if err != nil {
			for _, s := range sources {
				s.Close()
			}
			return err
		}
		sources = append(sources, src)
	}
	defer func() {
		for _, s := range sources {
			s.Close()
		}
	}()

	for _, src := range sources[1:] {
		wg.Add(1)
		go func(src camera.Source) {
			defer wg.Done()
			streamRaw(ctx, src, streams.Stream(src.Name()))
		}(src)
	}

	p, err := pipeline.New(pipeline.ConfigFrom(pc, false), table)
	if err != nil {
		return err
	}
	listener := pipeline.SinkListener(streams.Stream("Proc"), streams.Stream("Bin"), pc.GetOutputWidth(), pc.GetOutputHeight())

	if runOpts.recordPath != "" {
		rec, err := recorder.Open(runOpts.recordPath)
		if err != nil {
			return err
		}
		defer rec.Close()
		session, err := rec.StartSession(sources[0].Name(), pc.JSON())
		if err != nil {
			return err
		}
		log.Printf("Recording session %s to %s", session, runOpts.recordPath)
		listener = pipeline.Listeners(listener, rec.Listener(session))
	}

	stats, err := pipeline.NewRunner(p).Run(ctx, sources[0], listener)
	log.Printf("Vision stopped: frames=%d found=%d errors=%d", stats.Frames, stats.Found, stats.Errors)
	stop()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// mirrorRobot keeps a client connection to the robot table, redialling
// after failures until ctx is done.
func mirrorRobot(ctx context.Context, url string, table *telemetry.MemoryTable) {
	for ctx.Err() == nil {
		client, err := telemetry.Dial(ctx, url, table)
		if err == nil {
			log.Printf("Connected to robot telemetry at %s", url)
			err = client.Run(ctx)
			client.Close()
		}
		if ctx.Err() != nil {
			return
		}
		log.Printf("Robot telemetry unavailable: %v", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// streamRaw copies frames from a camera nobody analyses to its stream.
func streamRaw(ctx context.Context, src camera.Source, sink pipeline.Sink) {
	for ctx.Err() == nil {
		frame, err := src.Read(ctx)
		if err != nil {
			if errors.Is(err, camera.ErrNoFrames) || ctx.Err() != nil {
				return
			}
			log.Printf("Camera '%s': %v", src.Name(), err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		putFrame(sink, frame)
	}
}

func putFrame(sink pipeline.Sink, frame image.Image) {
	if frame.Bounds().Empty() {
		return
	}
	sink.PutFrame(frame)
}
