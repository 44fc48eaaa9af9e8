package session

import "testing"

func TestContextAdjust(t *testing.T) {
	c := NewContext(1, 2, 20000)

	if got := c.Adjust(1234); got != 1234 {
		t.Errorf("Adjust before start = %d, want 1234", got)
	}

	c.SetStartOffset(1000)
	tests := []struct {
		raw, want uint64
	}{
		{1000, 0},
		{1234, 234},
		{999, 0},
	}
	for _, tt := range tests {
		if got := c.Adjust(tt.raw); got != tt.want {
			t.Errorf("Adjust(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestContextRewardSchedule(t *testing.T) {
	c := NewContext(1, 2, 0)

	if !c.Satisfies() {
		t.Fatal("ratio 1 should be satisfied by the first press")
	}
	c.Reward()
	if c.RequiredPresses != 3 || c.PressCount != 0 || c.Rewards != 1 {
		t.Errorf("after reward: %+v", c)
	}

	c.PressCount = 2
	if !c.Satisfies() {
		t.Error("count 2 of ratio 3 should be satisfied by the next press")
	}

	c.PressCount = 5
	c.RequiredPresses = 2
	if !c.Satisfies() {
		t.Error("lowered ratio should be satisfied by the next press")
	}
}

func TestNewContextClampsRatio(t *testing.T) {
	if c := NewContext(0, 0, 0); c.RequiredPresses != 1 {
		t.Errorf("RequiredPresses = %d, want 1", c.RequiredPresses)
	}
}

func TestStateStrings(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Idle, "idle"},
		{Linked, "linked"},
		{Running, "running"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
	if RH.Other() != LH || LH.Other() != RH {
		t.Error("Other() should swap levers")
	}
}
