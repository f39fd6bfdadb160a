package loader

import (
	"io"
)

// progressReader reports transfer percentage as the request body is
// consumed. Percentages are monotonically non-decreasing and reach 100
// exactly once, via finish, after the server acknowledged the object.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	lastPct    int
	onProgress func(pct int)
}

func newProgressReader(r io.Reader, total int64, onProgress func(pct int)) *progressReader {
	if onProgress == nil {
		onProgress = func(int) {}
	}
	return &progressReader{r: r, total: total, onProgress: onProgress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	if p.total > 0 && n > 0 {
		pct := int(p.read * 100 / p.total)
		// Bytes handed to the transport are not yet acknowledged; hold
		// the last point back for finish.
		if pct > 99 {
			pct = 99
		}
		if pct > p.lastPct {
			p.lastPct = pct
			p.onProgress(pct)
		}
	}

	return n, err
}

func (p *progressReader) finish() {
	if p.lastPct < 100 {
		p.lastPct = 100
		p.onProgress(100)
	}
}
