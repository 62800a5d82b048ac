package partychat

import "testing"

func TestPolicyGate(t *testing.T) {
	p := NewPolicy()
	p.Join("general")

	if !p.Gate(RoomKey("general")) {
		t.Fatal("gate must be open before the first room_state")
	}

	p.Update("general", "moderators", false)
	if p.Gate(RoomKey("general")) {
		t.Fatal("gate must close after a denial")
	}
	if !p.Gate(PrivateKey("7")) {
		t.Fatal("private conversations are never gated")
	}
	if got := p.Label("general"); got != "moderators" {
		t.Fatalf("Label = %q", got)
	}

	t.Run("other rooms do not move the gate", func(t *testing.T) {
		p.Update("lobby", "", true)
		if p.CanSend() {
			t.Fatal("broadcast for another room reopened the gate")
		}
		if got := p.Label("lobby"); got != DefaultPolicyLabel {
			t.Fatalf("empty label should default, got %q", got)
		}
	})

	t.Run("join reopens", func(t *testing.T) {
		p.Join("lobby")
		if !p.CanSend() {
			t.Fatal("joining a room resets the gate")
		}
	})
}

func TestPolicySetLabel(t *testing.T) {
	p := NewPolicy()
	p.Join("general")
	p.SetLabel("vip", "hosts")

	rp, ok := p.Room("vip")
	if !ok || rp.Label != "hosts" || !rp.CanSend {
		t.Fatalf("Room(vip) = %+v, %v", rp, ok)
	}
	if !p.CanSend() {
		t.Fatal("SetLabel must not touch the gate")
	}
	if got := p.Label("unknown"); got != DefaultPolicyLabel {
		t.Fatalf("Label(unknown) = %q", got)
	}
}

func TestOptimisticAppendLeavesGate(t *testing.T) {
	p := NewPolicy()
	p.Join("general")
	p.Update("general", "everyone", true)

	r, _ := newTestReconciler("alice", nil)
	if _, err := r.AppendOptimistic(RoomKey("general"), Draft{Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if !p.Gate(RoomKey("general")) {
		t.Fatal("appending must not change the gate")
	}
}
