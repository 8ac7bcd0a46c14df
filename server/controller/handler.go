package server

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"go_dir_sync/fileio"
	"go_dir_sync/logging"
	"go_dir_sync/networking"
)

// PathError is returned when a client names a path outside the backup root
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("rejected path %q: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Handler reconstructs one client's tree. It owns at most one open file and is used by a single goroutine.
type Handler struct {
	root       string
	factory    fileio.IOFactory
	bufferSize int
	log        *zap.Logger

	writer fileio.FileWriter // nil while no file is open
	target string
	closed bool
}

// NewHandler prepares a handler writing below root
func NewHandler(root string, factory fileio.IOFactory, bufferSize int, log *zap.Logger) *Handler {
	if factory == nil {
		factory = new(fileio.BufferedFactory)
	}
	return &Handler{
		root:       root,
		factory:    factory,
		bufferSize: bufferSize,
		log:        logging.OrNop(log),
	}
}

// FileOpen reports whether a BeginFile is waiting for its EndFile
func (h *Handler) FileOpen() bool {
	return h.writer != nil
}

// Serve processes frames in arrival order until EndSession or a fatal error.
// A nil return means the client ended the session.
func (h *Handler) Serve(conn io.ReadWriter) error {
	stream := networking.NewStream(conn)
	// Whatever is still open when we leave is dropped as-is.
	defer h.discard()

	for !h.closed {
		msg, err := stream.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("client disconnected without ending session: %w", err)
			}
			return err
		}

		if err := h.dispatch(stream, msg); err != nil {
			return err
		}
	}
	return nil
}

// dispatch determines what to do with incoming messages
func (h *Handler) dispatch(stream *networking.Stream, msg networking.Message) error {
	switch m := msg.(type) {
	case networking.MakeDirectory:
		return h.makeDirectory(m)
	case networking.BeginFile:
		return h.beginFile(m)
	case networking.FileChunk:
		return h.fileChunk(m)
	case networking.EndFile:
		return h.endFile(stream)
	case networking.EndFileAcknowledgment:
		h.log.Warn("protocol anomaly: client sent an acknowledgment, ignoring")
	case networking.EndSession:
		h.log.Debug("session ended by client")
		h.closed = true
	default:
		h.log.Warn("protocol anomaly: unhandled message", zap.String("message", networking.Describe(msg)))
	}
	return nil
}

func (h *Handler) resolve(rel string) (string, error) {
	path, err := fileio.ResolveWithin(h.root, rel)
	if err != nil {
		return "", &PathError{Path: rel, Err: err}
	}
	return path, nil
}

// makeDirectory creates the directory and any missing parents
func (h *Handler) makeDirectory(m networking.MakeDirectory) error {
	path, err := h.resolve(m.RelativePath)
	if err != nil {
		return err
	}
	if err := fileio.EnsureDir(path); err != nil {
		return &networking.IOError{Op: "create directory", Err: err}
	}
	h.log.Debug("directory", zap.String("path", m.RelativePath))
	return nil
}

// beginFile opens a new destination file, dropping any file still open
func (h *Handler) beginFile(m networking.BeginFile) error {
	path, err := h.resolve(m.RelativePath)
	if err != nil {
		return err
	}

	if h.writer != nil {
		// Previous transfer never saw its EndFile. Unflushed bytes are lost.
		h.log.Warn("protocol anomaly: new file started before previous one ended",
			zap.String("previous", h.target), zap.String("path", m.RelativePath))
		h.discard()
	}

	if err := fileio.EnsureParent(path); err != nil {
		return &networking.IOError{Op: "create parent directory", Err: err}
	}

	writer := h.factory.NewWriter()
	if err := writer.New(path, h.bufferSize); err != nil {
		return &networking.IOError{Op: "create file", Err: err}
	}

	h.writer = writer
	h.target = path
	h.log.Debug("receiving file", zap.String("path", m.RelativePath), zap.Uint64("size", m.FileSize))
	return nil
}

// fileChunk appends data to the open file. Without an open file it is a no-op.
func (h *Handler) fileChunk(m networking.FileChunk) error {
	if h.writer == nil {
		h.log.Debug("chunk without open file, ignoring", zap.Int("size", len(m.Data)))
		return nil
	}
	if err := h.writer.Write(m.Data); err != nil {
		return &networking.IOError{Op: "write file", Err: err}
	}
	return nil
}

// endFile finalizes the open file and acknowledges it with its checksum
func (h *Handler) endFile(stream *networking.Stream) error {
	if h.writer == nil {
		h.log.Debug("end of file without open file, ignoring")
		return nil
	}

	writer, target := h.writer, h.target
	h.writer, h.target = nil, ""

	if err := writer.Close(); err != nil {
		return &networking.IOError{Op: "close file", Err: err}
	}

	sum, err := fileio.Digest(target)
	if err != nil {
		return &networking.IOError{Op: "checksum file", Err: err}
	}

	h.log.Info("file received", zap.String("path", target), zap.String("sha1", fmt.Sprintf("%x", sum)))
	return stream.Send(networking.EndFileAcknowledgment{Checksum: sum})
}

func (h *Handler) discard() {
	if h.writer != nil {
		h.writer.Discard()
		h.writer = nil
		h.target = ""
	}
}
