package core

import (
	"fmt"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	hub := NewHub(nil, nil)

	sender := NewSession(256)
	if relayErr := hub.Register(sender, "sender"); relayErr != nil {
		b.Fatalf("register sender: %v", relayErr)
	}
	if relayErr := hub.CreateRoom(sender, "bench"); relayErr != nil {
		b.Fatalf("create room: %v", relayErr)
	}

	// Drain every queue except the probe's to avoid backpressure drops.
	drain := func(s *Session) {
		go func() {
			for range s.Outbound() {
			}
		}()
	}
	drain(sender)

	// The probe joins last so setup traffic cannot overflow its queue.
	var probe *Session
	for i := 0; i < recipients; i++ {
		c := NewSession(256)
		if relayErr := hub.Register(c, fmt.Sprintf("client-%d", i)); relayErr != nil {
			b.Fatalf("register client: %v", relayErr)
		}
		if relayErr := hub.JoinRoom(c, "bench"); relayErr != nil {
			b.Fatalf("join room: %v", relayErr)
		}
		if i == recipients-1 {
			probe = c
		} else {
			drain(c)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if relayErr := hub.SendText(sender, "bench", "payload"); relayErr != nil {
			b.Fatalf("send: %v", relayErr)
		}
		for ev := range probe.Outbound() {
			if ev.Kind == EventMessage && ev.Message.Sender == "sender" {
				break
			}
		}
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
