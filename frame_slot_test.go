package main

import "testing"

func TestFrameSlotTakeEmptyReturnsFalse(t *testing.T) {
	var s FrameSlot
	if _, _, _, ok := s.Take(); ok {
		t.Error("Take on an empty slot should return ok=false")
	}
}

func TestFrameSlotOverwriteOnPublish(t *testing.T) {
	var s FrameSlot
	s.Publish([]byte{1, 2, 3}, 1, 3)
	s.Publish([]byte{9, 9}, 1, 2) // second publish before any Take

	pixels, w, h, ok := s.Take()
	if !ok {
		t.Fatal("Take should see the second publish")
	}
	if w != 1 || h != 2 || len(pixels) != 2 {
		t.Errorf("got w=%d h=%d len=%d, want the newer frame (1,2,2); stale frame was not dropped", w, h, len(pixels))
	}
}

func TestFrameSlotTakeAndClear(t *testing.T) {
	var s FrameSlot
	s.Publish([]byte{1}, 1, 1)

	if _, _, _, ok := s.Take(); !ok {
		t.Fatal("first Take should succeed")
	}
	if _, _, _, ok := s.Take(); ok {
		t.Error("second Take without an intervening Publish should return ok=false (take-and-clear)")
	}
}
