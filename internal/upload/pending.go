package upload

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Phase is the progress of the in-flight local submission.
type Phase string

const (
	PhaseSelected         Phase = "SELECTED"
	PhaseRequestingIntent Phase = "REQUESTING_INTENT"
	PhaseTransferring     Phase = "TRANSFERRING"
	PhaseDone             Phase = "DONE"
	PhaseErrored          Phase = "ERRORED"
)

// FileInfo is a handle on the file the user picked. ContentType is the
// claimed MIME type and is informational only; validation uses the name.
type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// PendingUpload is the submission between file selection and resolution.
type PendingUpload struct {
	File           FileInfo
	TargetLanguage string
	Phase          Phase
	Error          string
}

func newPending(file FileInfo, target string) *PendingUpload {
	return &PendingUpload{File: file, TargetLanguage: target, Phase: PhaseSelected}
}

func markRequesting(p *PendingUpload)   { p.Phase = PhaseRequestingIntent; p.Error = "" }
func markTransferring(p *PendingUpload) { p.Phase = PhaseTransferring }
func markDone(p *PendingUpload)         { p.Phase = PhaseDone }
func markErrored(p *PendingUpload, err error) {
	p.Phase = PhaseErrored
	if err != nil {
		p.Error = err.Error()
	}
}

// FileFromPath builds a FileInfo for a file on disk, sniffing its MIME type.
func FileFromPath(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("%s is a directory", path)
	}
	mimeType, err := detectMime(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func detectMime(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for mime detect: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read for mime detect: %w", err)
	}
	return http.DetectContentType(buf[:n]), nil
}
