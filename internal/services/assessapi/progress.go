package assessapi

import (
	"io"
	"sync"
)

// progressReporter converts bytes-read counts into a monotonically
// non-decreasing 0-100 percentage. The final update before a successful
// upload resolves is always 100.
type progressReporter struct {
	mu    sync.Mutex
	total int64
	read  int64
	last  int
	fn    func(percent int)
}

func newProgressReporter(total int64, fn func(percent int)) *progressReporter {
	return &progressReporter{total: total, last: -1, fn: fn}
}

func (p *progressReporter) wrap(r io.Reader) io.Reader {
	return &progressReader{reader: r, reporter: p}
}

func (p *progressReporter) add(n int) {
	if p.fn == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	p.read += int64(n)
	percent := 0
	if p.total > 0 {
		percent = int(p.read * 100 / p.total)
	}
	if percent > 100 {
		percent = 100
	}
	emit := percent > p.last
	if emit {
		p.last = percent
	}
	p.mu.Unlock()

	if emit {
		p.fn(percent)
	}
}

// finish forces the terminal 100% update if transfer accounting stopped short.
func (p *progressReporter) finish() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	emit := p.last < 100
	if emit {
		p.last = 100
	}
	p.mu.Unlock()

	if emit {
		p.fn(100)
	}
}

type progressReader struct {
	reader   io.Reader
	reporter *progressReporter
}

func (r *progressReader) Read(buf []byte) (int, error) {
	n, err := r.reader.Read(buf)
	r.reporter.add(n)
	return n, err
}
