package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/drape/internal/app"
	"github.com/ayusman/drape/internal/deform"
)

type fakeSnapshots struct {
	latest atomic.Pointer[app.Snapshot]
}

func (f *fakeSnapshots) Latest() *app.Snapshot { return f.latest.Load() }

func dialMesh(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) app.Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(msg, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func TestMeshHandler_Broadcast(t *testing.T) {
	src := &fakeSnapshots{}
	src.latest.Store(&app.Snapshot{Seq: 1})

	h := NewMeshHandler(src)
	defer h.Close()
	ts := httptest.NewServer(h)
	defer ts.Close()

	conn := dialMesh(t, ts)

	// current snapshot on connect
	if snap := readSnapshot(t, conn); snap.Seq != 1 {
		t.Errorf("expected seq 1 on connect, got %d", snap.Seq)
	}

	src.latest.Store(&app.Snapshot{
		Seq:  2,
		Mesh: deform.Mesh{GarmentID: "basic-tshirt", Torso: []deform.Vertex{{X: 0.5, Y: -0.5, U: 0.25, V: 0.75}}},
	})
	snap := readSnapshot(t, conn)
	if snap.Seq != 2 {
		t.Fatalf("expected seq 2, got %d", snap.Seq)
	}
	if snap.Mesh.GarmentID != "basic-tshirt" || len(snap.Mesh.Torso) != 1 {
		t.Errorf("unexpected mesh %+v", snap.Mesh)
	}
	if snap.Mesh.Torso[0].U != 0.25 {
		t.Errorf("expected u 0.25, got %v", snap.Mesh.Torso[0].U)
	}
}

func TestMeshHandler_ClientsAndClose(t *testing.T) {
	src := &fakeSnapshots{}
	h := NewMeshHandler(src)
	ts := httptest.NewServer(h)
	defer ts.Close()

	conn := dialMesh(t, ts)

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 client, got %d", h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for h.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected client removed, got %d", h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.Close()
	h.Close()
}
