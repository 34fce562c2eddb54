// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	syncpkg "github.com/curator-app/curator/internal/sync"
)

// newTestClient builds a client with no underlying connection; only the
// send channel matters for hub logic.
func newTestClient(hub *Hub) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		send: make(chan Message, 4),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Serve(ctx) }()
	return hub, cancel
}

func TestHubRegisterAndBroadcast(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	client := newTestClient(hub)
	hub.Register <- client

	hub.Publish(syncpkg.Event{Type: "sync.started", Instance: "main"})

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeSync {
			t.Errorf("message type = %q", msg.Type)
		}
		event, ok := msg.Data.(syncpkg.Event)
		if !ok {
			t.Fatalf("data type = %T", msg.Data)
		}
		if event.Instance != "main" {
			t.Errorf("instance = %q", event.Instance)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never arrived")
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	client := newTestClient(hub)
	hub.Register <- client
	hub.Unregister <- client

	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client never removed")
		case <-time.After(time.Millisecond):
		}
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("send channel received a message instead of closing")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel never closed")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	slow := newTestClient(hub)
	hub.Register <- slow

	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatal("client never registered")
		case <-time.After(time.Millisecond):
		}
	}

	// Overflow the client's send buffer without draining it.
	for i := 0; i < cap(slow.send)+2; i++ {
		hub.Broadcast(MessageTypeSync, i)
	}

	deadline = time.After(2 * time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("slow client never dropped")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestHubServeShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	client := newTestClient(hub)
	hub.Register <- client
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve never returned")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("clients remaining = %d", hub.ClientCount())
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	hub := NewHub() // Serve not running: broadcast buffer fills up.

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.broadcast)+10; i++ {
			hub.Publish(syncpkg.Event{Type: "sync.kind"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full broadcast channel")
	}
}

func TestMarshalMessage(t *testing.T) {
	data, err := MarshalMessage(Message{Type: MessageTypePong})
	if err != nil {
		t.Fatalf("MarshalMessage: %v", err)
	}
	if string(data) != `{"type":"pong","data":null}` {
		t.Errorf("json = %s", data)
	}
}
