// Package camera provides the frame sources and displays used by the
// vision pipeline.
//
// FolderSource replays still images from disk and, in watch mode, keeps
// picking up new files as they are dropped into the folder. Files should be
// moved into place rather than written in place, or the first read may see
// a partial image.
//
// USB cameras and on-screen windows need OpenCV and are only available when
// built with -tags=gocv; otherwise OpenUSB and NewWindowDisplay return
// ErrUnsupported.
package camera
