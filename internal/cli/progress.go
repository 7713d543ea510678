package cli

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Progress draws an indexing progress bar. It implements indexer.Progress.
type Progress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewProgress returns a bar writing to stderr, or nil when stderr is not a terminal.
// A nil *Progress draws nothing.
func NewProgress() *Progress {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return &Progress{out: os.Stderr}
}

// NewProgressTo returns a bar writing to out.
func NewProgressTo(out io.Writer) *Progress {
	return &Progress{out: out}
}

func (p *Progress) Start(total int) {
	if p == nil || total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("indexing"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *Progress) Add(n int) {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Add(n)
}

func (p *Progress) Finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
