package gcode

import (
	"errors"
	"strings"
)

// Block is a single line of G-code.
type Block []Word

// Args returns the words that do not belong to a modal group (axes, etc.).
func (b Block) Args() Block {
	res := make(Block, 0, len(b))
	for _, g := range b {
		if g.ModalGroup() == ModalGroupNone {
			res = append(res, g)
		}
	}
	return res
}

// String formats the block the way the controller expects it,
// one space between words.
func (b Block) String() string {
	s := make([]string, len(b))
	for i, w := range b {
		s[i] = w.String()
	}
	return strings.Join(s, " ")
}

func (b Block) Validate() error {
	var checkWord [256]bool
	var checkModal [256]bool

	var m ModalGroup
	for _, g := range b {
		if !g.IsValid() {
			return errors.New("invalid word in block")
		}
		if g.W != 'G' && checkWord[g.W] {
			return errors.New("word was repeated in a block")
		}
		checkWord[g.W] = true
		m = g.ModalGroup()
		if m != ModalGroupNone && checkModal[m] {
			return errors.New("multiple words from same modal group")
		}
		checkModal[m] = true
	}

	return nil
}
