package topic

import "testing"

func TestTreeExactMatch(t *testing.T) {
	tr := NewTree()
	if err := tr.Subscribe("c1", "a/b/c", Info{QoS: 0}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	subs := tr.Match("a/b/c")
	if _, ok := subs["c1"]; !ok {
		t.Fatalf("expected c1 to match a/b/c, got %v", subs)
	}
	if len(tr.Match("a/b")) != 0 {
		t.Fatalf("expected no match for a/b")
	}
}

func TestTreePlusWildcard(t *testing.T) {
	tr := NewTree()
	tr.Subscribe("c1", "a/+/c", Info{QoS: 0})
	if _, ok := tr.Match("a/b/c")["c1"]; !ok {
		t.Fatalf("expected + to match a/b/c")
	}
	if _, ok := tr.Match("a/b/b/c")["c1"]; ok {
		t.Fatalf("+ must not match across multiple levels")
	}
}

func TestTreeHashWildcard(t *testing.T) {
	tr := NewTree()
	tr.Subscribe("c1", "a/#", Info{QoS: 0})
	for _, topicName := range []string{"a", "a/b", "a/b/c"} {
		if _, ok := tr.Match(topicName)["c1"]; !ok {
			t.Fatalf("expected a/# to match %s", topicName)
		}
	}
	if _, ok := tr.Match("x")["c1"]; ok {
		t.Fatalf("a/# must not match unrelated topic")
	}
}

func TestTreeQoSMergeByMax(t *testing.T) {
	tr := NewTree()
	tr.Subscribe("c1", "a/b", Info{QoS: 0})
	tr.Subscribe("c1", "a/#", Info{QoS: 1})
	info, ok := tr.Match("a/b")["c1"]
	if !ok || info.QoS != 1 {
		t.Fatalf("expected merged QoS 1, got %+v ok=%v", info, ok)
	}
}

func TestTreeUnsubscribeIsInverseOfSubscribe(t *testing.T) {
	tr := NewTree()
	tr.Subscribe("c1", "a/b", Info{QoS: 0})
	tr.Unsubscribe("c1", "a/b")
	if len(tr.Match("a/b")) != 0 {
		t.Fatalf("expected no subscribers after unsubscribe")
	}
	if len(tr.reverse) != 0 {
		t.Fatalf("expected reverse index emptied, got %v", tr.reverse)
	}
}

func TestTreeUnsubscribeAllEmptiesEverything(t *testing.T) {
	tr := NewTree()
	tr.Subscribe("c1", "a/b", Info{QoS: 0})
	tr.Subscribe("c1", "a/#", Info{QoS: 0})
	tr.Subscribe("c1", "x/y", Info{QoS: 0})
	tr.UnsubscribeAll("c1")

	for _, topicName := range []string{"a/b", "a", "x/y"} {
		if len(tr.Match(topicName)) != 0 {
			t.Fatalf("expected no subscribers left for %s", topicName)
		}
	}
	if len(tr.reverse) != 0 {
		t.Fatalf("expected reverse index empty, got %v", tr.reverse)
	}
}

func TestTreeLeadingSlashLevel(t *testing.T) {
	tr := NewTree()
	tr.Subscribe("c1", "/a/b", Info{QoS: 0})
	if _, ok := tr.Match("/a/b")["c1"]; !ok {
		t.Fatalf("expected leading / to be treated as its own level")
	}
}

func TestTreeEmptyTopicNeverMatches(t *testing.T) {
	tr := NewTree()
	tr.Subscribe("c1", "#", Info{QoS: 0})
	if len(tr.Match("")) != 0 {
		t.Fatalf("empty topic must never match")
	}
}

func TestTreeSubscribeRejectsEmptyFilter(t *testing.T) {
	tr := NewTree()
	if err := tr.Subscribe("c1", "", Info{QoS: 0}); err == nil {
		t.Fatalf("expected error subscribing to empty filter")
	}
}

func TestValidateFilter(t *testing.T) {
	valid := []string{"a", "a/b", "+", "#", "a/+/c", "a/#", "/a", "+/+", "a/+/#"}
	for _, f := range valid {
		if err := ValidateFilter(f); err != nil {
			t.Errorf("ValidateFilter(%q) = %v, want nil", f, err)
		}
	}
	invalid := []string{"", "a/#/b", "#/a", "a+", "a/b+", "a#", "a/#b", "+a/b"}
	for _, f := range invalid {
		if err := ValidateFilter(f); err == nil {
			t.Errorf("ValidateFilter(%q) = nil, want error", f)
		}
	}
}

func TestValidateName(t *testing.T) {
	for _, n := range []string{"a", "a/b", "/a", "a//b"} {
		if err := ValidateName(n); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", n, err)
		}
	}
	for _, n := range []string{"", "a/+/c", "a/#", "+", "#"} {
		if err := ValidateName(n); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", n)
		}
	}
}

func TestTreeSubscribeRejectsBadGrammar(t *testing.T) {
	tr := NewTree()
	for _, f := range []string{"a/#/b", "a+", "#/a"} {
		if err := tr.Subscribe("c1", f, Info{}); err == nil {
			t.Errorf("Subscribe(%q) should fail", f)
		}
	}
	if len(tr.reverse) != 0 {
		t.Fatal("rejected filters must not touch the reverse index")
	}
}

func TestTreeHashMatchesParentLevel(t *testing.T) {
	// "a/#" 也匹配父层 "a" 本身 (零段尾巴)。
	tr := NewTree()
	_ = tr.Subscribe("c1", "a/#", Info{QoS: 0})
	if _, ok := tr.Match("a")["c1"]; !ok {
		t.Fatal("a/# must match topic a")
	}
}

func TestTreeConcurrentSubscribePublish(t *testing.T) {
	tr := NewTree()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = tr.Subscribe("w", "x/y/z", Info{QoS: 0})
			tr.Unsubscribe("w", "x/y/z")
		}
	}()
	for i := 0; i < 1000; i++ {
		tr.Match("a/b")
		tr.Match("x/y/z")
	}
	<-done
}
