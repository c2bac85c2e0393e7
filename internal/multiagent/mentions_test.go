package multiagent

import "testing"

func TestParseMentionLeading(t *testing.T) {
	agents := []string{"general", "explore", "research"}
	route := ParseMention("@explore find TODO comments under src/", agents)
	if !route.ShouldInvokeTask {
		t.Fatal("leading mention of a valid agent should route")
	}
	if route.Agent != "explore" {
		t.Errorf("agent = %q", route.Agent)
	}
	if route.Prompt != "find TODO comments under src/" {
		t.Errorf("prompt = %q", route.Prompt)
	}
}

func TestParseMentionLeadingWhitespace(t *testing.T) {
	route := ParseMention("   @general do the thing", []string{"general"})
	if !route.ShouldInvokeTask || route.Agent != "general" {
		t.Errorf("route = %+v", route)
	}
}

func TestParseMentionNonLeadingIgnored(t *testing.T) {
	route := ParseMention("ask @explore about this", []string{"explore"})
	if route.ShouldInvokeTask {
		t.Error("non-leading mentions are prose, not routing")
	}
}

func TestParseMentionUnknownAgent(t *testing.T) {
	route := ParseMention("@nosuch do something", []string{"general"})
	if route.ShouldInvokeTask {
		t.Error("unknown agent should not route")
	}
}

func TestParseMentionInvalidToken(t *testing.T) {
	for _, input := range []string{"@1agent run", "@", "plain text", ""} {
		if route := ParseMention(input, []string{"agent"}); route.ShouldInvokeTask {
			t.Errorf("input %q should not route", input)
		}
	}
}
