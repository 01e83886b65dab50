package session

import (
	"net"
	"strings"
	"testing"
)

func TestBegin_PopulatesFromConn(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	info := Begin("tcp", client)
	if info.ID == "" || len(info.ID) != 8 {
		t.Errorf("id = %q, want 8 characters", info.ID)
	}
	if info.Protocol != "tcp" {
		t.Errorf("protocol = %q", info.Protocol)
	}
	if info.RemoteAddr == "" || info.LocalAddr == "" {
		t.Errorf("addresses not captured: local=%q remote=%q", info.LocalAddr, info.RemoteAddr)
	}
	if info.StartedAt.IsZero() {
		t.Error("start time not set")
	}
}

func TestBegin_UniqueIDs(t *testing.T) {
	a := Begin("udp", nil)
	b := Begin("udp", nil)
	if a.ID == b.ID {
		t.Errorf("two sessions share id %q", a.ID)
	}
}

func TestInfo_String(t *testing.T) {
	info := &Info{ID: "3f2a9c41", Protocol: "tcp", LocalAddr: "10.0.0.5:51234", RemoteAddr: "10.0.0.9:4000"}
	got := info.String()
	want := "3f2a9c41 tcp 10.0.0.5:51234 -> 10.0.0.9:4000"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	var nilInfo *Info
	if !strings.Contains(nilInfo.String(), "no session") {
		t.Errorf("nil String() = %q", nilInfo.String())
	}
}

func TestInfo_Uptime(t *testing.T) {
	info := Begin("tcp", nil)
	if info.Uptime() < 0 {
		t.Errorf("uptime negative: %v", info.Uptime())
	}

	var nilInfo *Info
	if nilInfo.Uptime() != 0 {
		t.Error("nil uptime should be 0")
	}
}
