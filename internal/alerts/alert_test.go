package alerts

import (
	"encoding/json"
	"testing"
)

func TestPriorityRankOrder(t *testing.T) {
	for i := 1; i < len(Priorities); i++ {
		if !Priorities[i-1].Before(Priorities[i]) {
			t.Errorf("%v should sort before %v", Priorities[i-1], Priorities[i])
		}
	}
	if PriorityCritical.Rank() != 1 || PriorityInfo.Rank() != 5 {
		t.Errorf("unexpected ranks %d..%d", PriorityCritical.Rank(), PriorityInfo.Rank())
	}
}

func TestPriorityJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Priority{"p": PriorityHigh})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"p":"high"}` {
		t.Errorf("got %s", b)
	}

	var p Priority
	if err := json.Unmarshal([]byte(`"low"`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p != PriorityLow {
		t.Errorf("got %v, want low", p)
	}
	if err := json.Unmarshal([]byte(`"urgent"`), &p); err == nil {
		t.Error("expected unknown priority to fail")
	}
	if _, err := json.Marshal(Priority(9)); err == nil {
		t.Error("expected out-of-range priority to fail")
	}
}
