package gcode

import "io"

// Reader yields blocks until io.EOF. Parser is the streaming
// implementation; BlocksReader replays blocks already in memory.
type Reader interface {
	Read() (Block, error)
}

// BlocksReader reads from a fixed list of blocks.
type BlocksReader struct {
	Blocks []Block
	n      int
}

// NewBlocksReader returns a Reader over b.
func NewBlocksReader(b ...Block) *BlocksReader {
	return &BlocksReader{Blocks: b}
}

func (b *BlocksReader) Read() (Block, error) {
	if b.n == len(b.Blocks) {
		return nil, io.EOF
	}

	b.n++
	return b.Blocks[b.n-1], nil
}
