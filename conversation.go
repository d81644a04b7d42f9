package investigator

import "fmt"

// Conversation is the ordered, append-only transcript sent to the oracle.
type Conversation struct {
	turns []Turn
}

func (c *Conversation) Append(turn Turn) {
	c.turns = append(c.turns, turn)
}

func (c *Conversation) Len() int {
	return len(c.turns)
}

// Turns returns a copy of the transcript.
func (c *Conversation) Turns() []Turn {
	return c.view(0)
}

// view returns a copy of the transcript in which tool results older than
// the last keep turns are replaced by a short placeholder. keep <= 0 copies
// everything as is. The stored transcript is never modified.
func (c *Conversation) view(keep int) []Turn {
	turns := make([]Turn, len(c.turns))
	cutoff := 0
	if keep > 0 && len(c.turns) > keep {
		cutoff = len(c.turns) - keep
	}
	for i, turn := range c.turns {
		blocks := make([]Block, len(turn.Blocks))
		copy(blocks, turn.Blocks)
		if i < cutoff {
			for j := range blocks {
				if blocks[j].Type == BlockToolResult && len(blocks[j].Content) > compactThreshold {
					blocks[j].Content = fmt.Sprintf("[compacted: %d bytes]", len(blocks[j].Content))
				}
			}
		}
		turns[i] = Turn{Role: turn.Role, Blocks: blocks}
	}
	return turns
}

// results shorter than this stay readable after compaction
const compactThreshold = 200
