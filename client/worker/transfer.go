package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"go_dir_sync/constants"
	"go_dir_sync/fileio"
	"go_dir_sync/logging"
	"go_dir_sync/networking"
)

// State of the client side of a session
type State int

const (
	Idle State = iota
	DirectoryEntry
	FileTransfer
	SessionEnded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DirectoryEntry:
		return "directory"
	case FileTransfer:
		return "file transfer"
	case SessionEnded:
		return "session ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is the verification outcome of one file
type Status int

const (
	StatusMatch    Status = iota // Server digest equals ours
	StatusMismatch               // Digests differ
	StatusAnomaly                // Server answered EndFile with something other than an acknowledgment
)

func (s Status) String() string {
	switch s {
	case StatusMatch:
		return "OK"
	case StatusMismatch:
		return "FAIL"
	case StatusAnomaly:
		return "??"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FileResult reports how one file fared
type FileResult struct {
	Path     string // Wire path
	Size     uint64 // Bytes sent
	Status   Status
	Local    []byte // Our SHA-1
	Remote   []byte // Server SHA-1, empty on anomaly
	Received string // Unexpected reply, only set on anomaly
}

// Summary totals a whole run
type Summary struct {
	Directories int
	Files       int
	Bytes       uint64
	Matched     int
	Mismatched  int
	Anomalies   int
	Skipped     int // Special files, dangling links and links to directories
}

// OK returns true if every file was confirmed by the server
func (s *Summary) OK() bool {
	return s.Mismatched == 0 && s.Anomalies == 0
}

// Session is the connection a Driver talks through
type Session interface {
	Send(msg networking.Message) error
	Receive() (networking.Message, error)
	CloseWrite() error
}

// Walker enumerates the source tree
type Walker interface {
	Walk(root string, fn fileio.WalkFunc) error
}

// Driver sends a directory tree over one session, one file at a time
type Driver struct {
	session   Session
	walker    Walker
	factory   fileio.IOFactory
	chunkSize int
	log       *zap.Logger
	report    func(FileResult)
	state     State
}

type Option func(*Driver)

func WithWalker(w Walker) Option {
	return func(d *Driver) { d.walker = w }
}

func WithIOFactory(f fileio.IOFactory) Option {
	return func(d *Driver) { d.factory = f }
}

func WithChunkSize(size int) Option {
	return func(d *Driver) { d.chunkSize = size }
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) { d.log = logging.OrNop(log) }
}

// WithReporter is called with every file result as soon as it is known
func WithReporter(fn func(FileResult)) Option {
	return func(d *Driver) { d.report = fn }
}

// NewDriver prepares a transfer over session
func NewDriver(session Session, opts ...Option) *Driver {
	d := &Driver{
		session:   session,
		walker:    new(fileio.TreeWalker),
		factory:   new(fileio.BufferedFactory),
		chunkSize: constants.FILE_CHUNK_SIZE,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns where the driver currently is
func (d *Driver) State() State {
	return d.state
}

// Run walks source and mirrors it on the server as <base name of source>/...
// Digest mismatches are reported, not returned. Connection and file errors abort the run.
// ctx is only checked between entries.
func (d *Driver) Run(ctx context.Context, source string) (*Summary, error) {
	summary := new(Summary)

	src, err := filepath.Abs(source)
	if err != nil {
		return summary, err
	}
	base := filepath.Base(src)
	if base == string(filepath.Separator) || base == "." {
		return summary, fmt.Errorf("cannot derive a destination name from %s", src)
	}

	err = d.walker.Walk(src, func(entry fileio.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel := path.Join(base, entry.RelPath)
		switch {
		case entry.IsDir:
			return d.sendDirectory(rel, summary)
		case entry.Mode.IsRegular():
			return d.sendFile(entry.Path, rel, summary)
		default:
			// Links to regular files are backed up with the target's content.
			if info, err := os.Stat(entry.Path); err == nil && info.Mode().IsRegular() {
				return d.sendFile(entry.Path, rel, summary)
			}
			summary.Skipped++
			d.log.Warn("skipping entry that is not a file or directory", zap.String("path", rel), zap.Stringer("type", entry.Mode))
			return nil
		}
	})
	if err != nil {
		d.state = Idle
		if ctx.Err() == nil && !networking.IsIOError(err) && !networking.IsDecodeError(err) {
			err = &networking.IOError{Op: "walk source tree", Err: err}
		}
		return summary, err
	}

	if err := d.session.Send(networking.EndSession{}); err != nil {
		return summary, err
	}
	if err := d.session.CloseWrite(); err != nil {
		return summary, err
	}
	d.state = SessionEnded

	return summary, nil
}

// sendDirectory does not wait for any reply
func (d *Driver) sendDirectory(rel string, summary *Summary) error {
	d.state = DirectoryEntry
	if err := d.session.Send(networking.MakeDirectory{RelativePath: rel}); err != nil {
		return err
	}
	summary.Directories++
	d.log.Debug("directory", zap.String("path", rel))
	d.state = Idle
	return nil
}

// sendFile streams one file and blocks until the server acknowledges it
func (d *Driver) sendFile(file, rel string, summary *Summary) error {
	d.state = FileTransfer

	reader := d.factory.NewReader()
	if err := reader.New(file, d.chunkSize); err != nil {
		return &networking.IOError{Op: "open source file", Err: err}
	}
	defer reader.Close()

	if err := d.session.Send(networking.BeginFile{RelativePath: rel, FileSize: reader.Size()}); err != nil {
		return err
	}

	var sent uint64
	for {
		chunk, err := reader.NextChunk()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &networking.IOError{Op: "read source file", Err: err}
		}
		if err := d.session.Send(networking.FileChunk{Data: chunk}); err != nil {
			return err
		}
		sent += uint64(len(chunk))
	}

	if err := d.session.Send(networking.EndFile{}); err != nil {
		return err
	}

	reply, err := d.session.Receive()
	if err != nil {
		return err
	}

	result := FileResult{Path: rel, Size: sent}
	switch m := reply.(type) {
	case networking.EndFileAcknowledgment:
		local, err := fileio.Digest(file)
		if err != nil {
			return &networking.IOError{Op: "checksum source file", Err: err}
		}
		result.Local = local
		result.Remote = m.Checksum
		if bytes.Equal(local, m.Checksum) {
			result.Status = StatusMatch
		} else {
			result.Status = StatusMismatch
		}
	default:
		result.Status = StatusAnomaly
		result.Received = networking.Describe(reply)
	}

	d.record(summary, result)
	d.state = Idle
	return nil
}

func (d *Driver) record(summary *Summary, result FileResult) {
	summary.Files++
	summary.Bytes += result.Size

	switch result.Status {
	case StatusMatch:
		summary.Matched++
		d.log.Debug("file confirmed", zap.String("path", result.Path), zap.Uint64("size", result.Size))
	case StatusMismatch:
		summary.Mismatched++
		d.log.Warn("checksum mismatch", zap.String("path", result.Path),
			zap.String("local", fmt.Sprintf("%x", result.Local)),
			zap.String("remote", fmt.Sprintf("%x", result.Remote)))
	case StatusAnomaly:
		summary.Anomalies++
		d.log.Warn("protocol anomaly: expected acknowledgment", zap.String("path", result.Path),
			zap.String("received", result.Received))
	}

	if d.report != nil {
		d.report(result)
	}
}
