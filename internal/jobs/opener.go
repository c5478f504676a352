package jobs

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
)

// Opener hands a download link to whatever navigates to it.
type Opener interface {
	Open(url string) error
}

// BrowserOpener opens links in the user's default browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	return browser.OpenURL(url)
}

// WriterOpener prints links, for terminals without a browser.
type WriterOpener struct {
	W io.Writer
}

func (o WriterOpener) Open(url string) error {
	_, err := fmt.Fprintln(o.W, url)
	return err
}
