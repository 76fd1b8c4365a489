package gcode

import (
	"errors"
	"io"
	"strings"
)

// ErrNotSingle is returned by ParseBlock for input holding zero or several
// blocks.
var ErrNotSingle = errors.New("expected exactly one block")

// Parse reads every block in data.
func Parse(data string) ([]Block, error) {
	p := NewParser(strings.NewReader(data))
	var blocks []Block
	for {
		b, err := p.Read()
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
}

// ParseBlock parses a single line of operator input.
func ParseBlock(s string) (Block, error) {
	blocks, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if len(blocks) != 1 {
		return nil, ErrNotSingle
	}
	return blocks[0], nil
}

// MustParse is like Parse but panics on error. For fixed programs.
func MustParse(data string) []Block {
	b, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return b
}
