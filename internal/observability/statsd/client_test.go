package statsd

import (
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"", " outbound/send ", "outbound_send"},
		{"mmk", "outbound..transition", "mmk.outbound.transition"},
		{"mmk", "", ""},
		{"", "a:b|c", "a_b_c"},
	}
	for _, tc := range tests {
		if got := metricName(tc.prefix, tc.name); got != tc.want {
			t.Fatalf("metricName(%q, %q) = %q, want %q", tc.prefix, tc.name, got, tc.want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " outbound "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	got := formatTags(global, local)
	want := "|#env:stage,result:success,service:outbound"
	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{prefix: "mmk", conn: clientConn, globalTags: map[string]string{"env": "test"}, logger: slog.Default()}

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		done <- string(buf[:n])
	}()

	client.Count("outbound.transition", 1, map[string]string{"channel": "sms"})

	select {
	case line := <-done:
		want := "mmk.outbound.transition:1|c|#channel:sms,env:test"
		if line != want {
			t.Fatalf("line = %q, want %q", line, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for statsd line")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to be disabled after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
	// Writes on a disabled client are dropped.
	client.Timing("outbound.send.duration", time.Second, nil)

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

type recordingSink struct {
	counts []string
}

func (r *recordingSink) Count(name string, _ int64, _ map[string]string) { r.counts = append(r.counts, name) }
func (r *recordingSink) Gauge(string, float64, map[string]string) {}
func (r *recordingSink) Timing(string, time.Duration, map[string]string) {}

func TestMulti(t *testing.T) {
	t.Parallel()

	if Multi() != Discard {
		t.Fatal("expected Discard for empty Multi")
	}

	a := &recordingSink{}
	if Multi(nil, a) != Sink(a) {
		t.Fatal("expected single sink to be returned as-is")
	}

	b := &recordingSink{}
	m := Multi(Multi(a, b), nil)
	m.Count("x", 1, nil)
	if len(a.counts) != 1 || len(b.counts) != 1 {
		t.Fatalf("expected fan-out to both sinks, got %v %v", a.counts, b.counts)
	}
}
