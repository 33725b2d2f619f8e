package frame

// minBufferSize is the first allocation of a reassembler buffer.
const minBufferSize = 4096

// Reassembler turns an arbitrarily chunked byte stream into complete frame
// bodies. The emitted sequence does not depend on how the stream is split.
//
// A Reassembler belongs to one connection and is not safe for concurrent
// use: feed it from a single goroutine.
type Reassembler struct {
	cfg         Config
	maxFrameLen int

	// buf[r:w] holds bytes received but not yet emitted.
	buf []byte
	r   int
	w   int
}

// ReassemblerOption configures a Reassembler.
type ReassemblerOption func(*Reassembler)

// MaxFrameLen rejects frames (header included) larger than n bytes as
// corrupt. Zero disables the limit.
func MaxFrameLen(n int) ReassemblerOption {
	return func(a *Reassembler) {
		a.maxFrameLen = n
	}
}

// NewReassembler returns an empty reassembler for the given header format.
func NewReassembler(cfg Config, opts ...ReassemblerOption) *Reassembler {
	a := &Reassembler{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Feed appends chunk and returns every body completed by it, in stream
// order. A corrupt header discards everything still buffered and returns a
// *FramingError together with the bodies completed before it; no attempt is
// made to find the next frame.
func (a *Reassembler) Feed(chunk []byte) ([][]byte, error) {
	a.append(chunk)

	var bodies [][]byte
	for a.w-a.r >= HeaderLen {
		hdr := a.buf[a.r : a.r+HeaderLen]
		total, err := FrameLen(hdr, a.cfg)
		if err == nil && a.maxFrameLen > 0 && total > a.maxFrameLen {
			err = framingError(hdr, ErrFrameTooLarge)
		}
		if err != nil {
			a.Reset()
			return bodies, err
		}
		if a.w-a.r < total {
			break
		}

		body := make([]byte, total-HeaderLen)
		copy(body, a.buf[a.r+HeaderLen:a.r+total])
		a.r += total
		bodies = append(bodies, body)
	}

	if a.r == a.w {
		a.r, a.w = 0, 0
	}
	return bodies, nil
}

// Buffered returns the number of bytes waiting for the rest of their frame.
func (a *Reassembler) Buffered() int {
	return a.w - a.r
}

// Reset drops all buffered bytes.
func (a *Reassembler) Reset() {
	a.r, a.w = 0, 0
}

func (a *Reassembler) append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	// compact once the consumed prefix dominates the buffer
	if a.r > 0 && a.r >= len(a.buf)/2 {
		n := copy(a.buf, a.buf[a.r:a.w])
		a.r, a.w = 0, n
	}

	if need := a.w + len(chunk); need > len(a.buf) {
		size := 2 * len(a.buf)
		if size < minBufferSize {
			size = minBufferSize
		}
		pending := a.w - a.r
		for size < pending+len(chunk) {
			size *= 2
		}
		buf := make([]byte, size)
		copy(buf, a.buf[a.r:a.w])
		a.buf, a.r, a.w = buf, 0, pending
	}

	a.w += copy(a.buf[a.w:], chunk)
}
