package investigator

import (
	"strings"
	"testing"
)

func TestConversationViewCompactsOldResults(t *testing.T) {
	c := &Conversation{}
	long := strings.Repeat("y", 300)
	c.Append(Turn{Role: RoleUser, Blocks: []Block{TextBlock(long)}})
	c.Append(Turn{Role: RoleAssistant, Blocks: []Block{ToolUseBlock("1", "dns_lookup", nil)}})
	c.Append(Turn{Role: RoleUser, Blocks: []Block{ToolResultBlock("1", long, false), ToolResultBlock("1", "short", false)}})
	c.Append(Turn{Role: RoleAssistant, Blocks: []Block{ToolUseBlock("2", "dns_lookup", nil)}})
	c.Append(Turn{Role: RoleUser, Blocks: []Block{ToolResultBlock("2", long, false)}})

	view := c.view(2)
	if view[0].Blocks[0].Text != long {
		t.Fatal("Text was compacted")
	}
	if view[2].Blocks[0].Content != "[compacted: 300 bytes]" || view[2].Blocks[1].Content != "short" {
		t.Fatalf("Old results are %+v", view[2].Blocks)
	}
	if view[4].Blocks[0].Content != long {
		t.Fatal("Recent result was compacted")
	}
	if c.Turns()[2].Blocks[0].Content != long {
		t.Fatal("Stored conversation was modified")
	}
	if full := c.view(0); full[2].Blocks[0].Content != long {
		t.Fatal("Zero keep compacted")
	}
}
