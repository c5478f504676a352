// Package pdfinfo reads PDF metadata with Poppler's pdfinfo tool.
package pdfinfo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrToolMissing means pdfinfo is not on PATH.
var ErrToolMissing = errors.New("pdfinfo not found in PATH (install poppler)")

// Info is what pdfinfo reports about a document.
type Info struct {
	Title     string
	Pages     int
	Encrypted bool
	// Page size of the first page in points.
	WidthPts  float64
	HeightPts float64
	PaperName string
	SizeBytes int64
}

// Probe runs pdfinfo on a local file.
func Probe(ctx context.Context, path string) (Info, error) {
	if _, err := exec.LookPath("pdfinfo"); err != nil {
		return Info{}, ErrToolMissing
	}
	out, err := exec.CommandContext(ctx, "pdfinfo", path).CombinedOutput()
	if err != nil {
		return Info{}, fmt.Errorf("pdfinfo failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return Parse(string(out)), nil
}

// Parse reads pdfinfo's "Key: value" output. Unknown keys are ignored.
func Parse(output string) Info {
	var info Info
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Title":
			info.Title = value
		case "Pages":
			if n, err := strconv.Atoi(value); err == nil {
				info.Pages = n
			}
		case "Encrypted":
			info.Encrypted = strings.HasPrefix(value, "yes")
		case "Page size":
			// "595.276 x 841.89 pts (A4)"
			f := strings.Fields(value)
			if len(f) >= 3 {
				info.WidthPts, _ = strconv.ParseFloat(f[0], 64)
				info.HeightPts, _ = strconv.ParseFloat(f[2], 64)
			}
			if i := strings.IndexByte(value, '('); i >= 0 {
				info.PaperName = strings.TrimSuffix(value[i+1:], ")")
			}
		case "File size":
			f := strings.Fields(value)
			if len(f) >= 1 {
				info.SizeBytes, _ = strconv.ParseInt(f[0], 10, 64)
			}
		}
	}
	return info
}
