// Package stream serves the pipeline's output frames as MJPEG over HTTP.
//
// Each named stream keeps only its latest frame. Viewers that fall behind
// skip straight to the newest one.
package stream

import (
	"bytes"
	"fmt"
	"html/template"
	"image"
	"io"
	"log"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
)

// JPEGQuality is the encoder quality of every stream.
const JPEGQuality = 80

const boundary = "frame"

// Stream is a single MJPEG feed.
type Stream struct {
	name string

	mu      sync.Mutex
	frame   []byte
	updated chan struct{}
	viewers int
}

func newStream(name string) *Stream {
	return &Stream{name: name, updated: make(chan struct{})}
}

// Name returns the stream name.
func (s *Stream) Name() string {
	return s.name
}

// PutFrame encodes img and publishes it to every viewer.
func (s *Stream) PutFrame(img image.Image) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		log.Printf("[stream] %s: failed to encode frame: %v", s.name, err)
		return
	}

	s.mu.Lock()
	s.frame = buf.Bytes()
	close(s.updated)
	s.updated = make(chan struct{})
	s.mu.Unlock()
}

// Viewers returns the number of connected viewers.
func (s *Stream) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewers
}

// latest returns the current frame and a channel closed on the next one.
func (s *Stream) latest() ([]byte, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.updated
}

func (s *Stream) addViewer(delta int) {
	s.mu.Lock()
	s.viewers += delta
	s.mu.Unlock()
}

// ServeHTTP streams frames until the client goes away.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")

	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	s.addViewer(1)
	defer s.addViewer(-1)

	var sent []byte
	for {
		frame, next := s.latest()
		if frame != nil && !sameFrame(frame, sent) {
			if err := writeJPEGPart(w, frame); err != nil {
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
			sent = frame
		}

		select {
		case <-r.Context().Done():
			return
		case <-next:
		}
	}
}

// sameFrame compares by identity; every PutFrame allocates a new buffer.
func sameFrame(a, b []byte) bool {
	return len(a) > 0 && len(a) == len(b) && &a[0] == &b[0]
}

// writeJPEGPart writes one part and the boundary that closes it, so a viewer
// can show the frame without waiting for the next one.
func writeJPEGPart(w io.Writer, frame []byte) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "image/jpeg")
	header.Set("Content-Length", strconv.Itoa(len(frame)))

	var buf bytes.Buffer
	for _, key := range []string{"Content-Type", "Content-Length"} {
		fmt.Fprintf(&buf, "%s: %s\r\n", key, header.Get(key))
	}
	buf.WriteString("\r\n")
	buf.Write(frame)
	buf.WriteString("\r\n--" + boundary + "\r\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
}

// Server hosts a set of named streams.
type Server struct {
	mu      sync.Mutex
	streams map[string]*Stream
}

// NewServer creates a server with no streams.
func NewServer() *Server {
	return &Server{streams: make(map[string]*Stream)}
}

// Stream returns the stream called name, creating it on first use.
func (s *Server) Stream(name string) *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[name]
	if !ok {
		st = newStream(name)
		s.streams[name] = st
	}
	return st
}

// Names returns the stream names in order.
func (s *Server) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.streams))
	for name := range s.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Vision streams</title></head>
<body>
<h1>Vision streams</h1>
<ul>
{{range .}}<li><a href="/stream/{{.}}">{{.}}</a></li>
{{end}}</ul>
</body>
</html>
`))

// Register adds the stream endpoints to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/stream/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		s.mu.Lock()
		st, ok := s.streams[name]
		s.mu.Unlock()
		if !ok {
			http.Error(w, fmt.Sprintf("no stream named %q", name), http.StatusNotFound)
			return
		}
		st.ServeHTTP(w, r)
	})
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if err := indexTemplate.Execute(w, s.Names()); err != nil {
			log.Printf("[stream] index: %v", err)
		}
	})
}
