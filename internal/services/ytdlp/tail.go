package ytdlp

// tailBuffer keeps the most recent max lines appended to it.
type tailBuffer struct {
	max   int
	lines []string
	start int
	full  bool
}

func newTailBuffer(max int) *tailBuffer {
	if max < 1 {
		max = 1
	}
	return &tailBuffer{max: max, lines: make([]string, max)}
}

func (b *tailBuffer) Add(line string) {
	b.lines[b.start] = line
	b.start = (b.start + 1) % b.max
	if b.start == 0 {
		b.full = true
	}
}

// Lines returns the retained lines in append order.
func (b *tailBuffer) Lines() []string {
	if !b.full {
		return append([]string(nil), b.lines[:b.start]...)
	}
	out := make([]string, 0, b.max)
	out = append(out, b.lines[b.start:]...)
	return append(out, b.lines[:b.start]...)
}
