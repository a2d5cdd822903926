package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/events"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// collector records chat events and signals each end event.
type collector struct {
	mu     sync.Mutex
	deltas map[string][]string
	ends   map[string]int
	endCh  chan string
}

func newCollector() *collector {
	return &collector{
		deltas: make(map[string][]string),
		ends:   make(map[string]int),
		endCh:  make(chan string, 64),
	}
}

func (c *collector) Publish(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Kind {
	case events.KindChatDelta:
		c.deltas[ev.RequestID] = append(c.deltas[ev.RequestID], ev.Data)
	case events.KindChatEnd:
		c.ends[ev.RequestID]++
		c.endCh <- ev.RequestID
	}
}

func (c *collector) waitEnd(t *testing.T, token string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-c.endCh:
			if got == token {
				return
			}
		case <-deadline:
			t.Fatalf("no end event for %s", token)
		}
	}
}

func (c *collector) snapshot(token string) ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deltas[token]...), c.ends[token]
}

func newTestRelay(pub events.Publisher, cfg ProviderConfig) *Relay {
	return NewRelay(RelayOptions{
		Config:    NewConfigStore(cfg),
		Client:    NewClient(ClientConfig{}, nil),
		Publisher: pub,
	})
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
}

var hello = []Message{{Role: "user", Content: "hello"}}

func TestMissingCredentialMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	pub := newCollector()
	relay := newTestRelay(pub, ProviderConfig{Provider: "anthropic", BaseURL: srv.URL})

	err := relay.Chat(context.Background(), hello, "r1")

	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Zero(t, hits.Load())
	_, ends := pub.snapshot("r1")
	assert.Zero(t, ends)
}

func TestAnthropicRelayStreamsDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, AnthropicVersion, r.Header.Get("anthropic-version"))

		sseHeaders(w)
		io.WriteString(w, anthropicFrame("Hel"))
		w.(http.Flusher).Flush()
		io.WriteString(w, "data: {oops\n\n")
		io.WriteString(w, anthropicFrame("lo"))
		io.WriteString(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	pub := newCollector()
	relay := newTestRelay(pub, ProviderConfig{Provider: "anthropic", APIKey: "sk-ant", BaseURL: srv.URL + "/v1"})

	require.NoError(t, relay.Chat(context.Background(), hello, "r1"))
	pub.waitEnd(t, "r1")

	deltas, ends := pub.snapshot("r1")
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, 1, ends)
	assert.Eventually(t, func() bool { return relay.Active() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHTTPErrorStartsNoStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"bad key"}`)
	}))
	defer srv.Close()

	pub := newCollector()
	relay := newTestRelay(pub, ProviderConfig{Provider: "openai", APIKey: "bad", BaseURL: srv.URL})

	err := relay.Chat(context.Background(), hello, "r1")

	var httpErr *ProviderHTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "bad key")
	assert.Contains(t, err.Error(), "401")

	time.Sleep(50 * time.Millisecond)
	_, ends := pub.snapshot("r1")
	assert.Zero(t, ends)
	assert.Zero(t, relay.Active())
}

func TestConcurrentChatsDoNotCrossDeliver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		who := gjson.GetBytes(body, "messages.0.content").String()

		sseHeaders(w)
		for i := 0; i < 20; i++ {
			io.WriteString(w, openAIFrame(fmt.Sprintf("%s-%d|", who, i)))
			w.(http.Flusher).Flush()
			time.Sleep(time.Millisecond)
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	pub := newCollector()
	relay := newTestRelay(pub, ProviderConfig{Provider: "openai", APIKey: "k", BaseURL: srv.URL + "/v1"})

	var wg sync.WaitGroup
	for _, who := range []string{"A", "B"} {
		wg.Add(1)
		go func(who string) {
			defer wg.Done()
			assert.NoError(t, relay.Chat(context.Background(), []Message{{Role: "user", Content: who}}, "tok-"+who))
		}(who)
	}
	wg.Wait()
	pub.waitEnd(t, "tok-A")
	pub.waitEnd(t, "tok-B")

	for _, who := range []string{"A", "B"} {
		deltas, ends := pub.snapshot("tok-" + who)
		assert.Equal(t, 1, ends)
		require.Len(t, deltas, 20)
		for i, d := range deltas {
			assert.Equal(t, fmt.Sprintf("%s-%d|", who, i), d)
		}
	}
}

func TestCompressedBodies(t *testing.T) {
	payload := openAIFrame("zip") + "data: [DONE]\n\n"

	tests := []struct {
		encoding string
		compress func([]byte) []byte
	}{
		{"gzip", func(b []byte) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			zw.Write(b)
			zw.Close()
			return buf.Bytes()
		}},
		{"zstd", func(b []byte) []byte {
			enc, _ := zstd.NewWriter(nil)
			defer enc.Close()
			return enc.EncodeAll(b, nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tt.encoding)
				sseHeaders(w)
				w.Write(tt.compress([]byte(payload)))
			}))
			defer srv.Close()

			pub := newCollector()
			relay := newTestRelay(pub, ProviderConfig{Provider: "openai", APIKey: "k", BaseURL: srv.URL})

			require.NoError(t, relay.Chat(context.Background(), hello, "r1"))
			pub.waitEnd(t, "r1")

			deltas, _ := pub.snapshot("r1")
			assert.Equal(t, []string{"zip"}, deltas)
		})
	}
}

// blockingServer sends one delta, then holds the stream open until the client
// goes away.
func blockingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		io.WriteString(w, openAIFrame("first"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
}

func TestCancelEndsStreamWithOneEndEvent(t *testing.T) {
	srv := blockingServer(t)
	defer srv.Close()

	pub := newCollector()
	relay := newTestRelay(pub, ProviderConfig{Provider: "openai", APIKey: "k", BaseURL: srv.URL})

	require.NoError(t, relay.Chat(context.Background(), hello, "r1"))
	require.Eventually(t, func() bool {
		deltas, _ := pub.snapshot("r1")
		return len(deltas) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.True(t, relay.Cancel("r1"))
	pub.waitEnd(t, "r1")
	assert.False(t, relay.Cancel("unknown"))

	time.Sleep(50 * time.Millisecond)
	_, ends := pub.snapshot("r1")
	assert.Equal(t, 1, ends)
}

func TestCallerContextDoesNotEndStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		for _, s := range []string{"a", "b", "c"} {
			io.WriteString(w, openAIFrame(s))
			w.(http.Flusher).Flush()
			time.Sleep(20 * time.Millisecond)
		}
	}))
	defer srv.Close()

	pub := newCollector()
	relay := newTestRelay(pub, ProviderConfig{Provider: "openai", APIKey: "k", BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, relay.Chat(ctx, hello, "r1"))
	cancel()
	pub.waitEnd(t, "r1")

	deltas, _ := pub.snapshot("r1")
	assert.Equal(t, []string{"a", "b", "c"}, deltas)
}

func TestShutdownCancelsStreams(t *testing.T) {
	srv := blockingServer(t)
	defer srv.Close()

	pub := newCollector()
	relay := newTestRelay(pub, ProviderConfig{Provider: "openai", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, relay.Chat(context.Background(), hello, "r1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, relay.Shutdown(ctx))

	_, ends := pub.snapshot("r1")
	assert.Equal(t, 1, ends)
	assert.ErrorIs(t, relay.Chat(context.Background(), hello, "r2"), ErrRelayClosed)
}

func TestBreakerOpensAfterServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	relay := newTestRelay(newCollector(), ProviderConfig{Provider: "anthropic", APIKey: "k", BaseURL: srv.URL})

	for i := 0; i < 5; i++ {
		var httpErr *ProviderHTTPError
		require.ErrorAs(t, relay.Chat(context.Background(), hello, "r"), &httpErr)
	}

	err := relay.Chat(context.Background(), hello, "r")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, int32(5), hits.Load())

	// The other family has its own breaker.
	openAI := ProviderConfig{Provider: "openai", APIKey: "k", BaseURL: srv.URL}
	var httpErr *ProviderHTTPError
	assert.ErrorAs(t, relay.ChatWith(context.Background(), openAI, hello, "r"), &httpErr)
}
