package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arin/livedit/internal/config"
	"github.com/arin/livedit/internal/status"
)

// recorder captures callback invocations in order.
type recorder struct {
	chunks   []string
	statuses []status.Status
	events   []string
}

func (r *recorder) chunk(text string) {
	r.chunks = append(r.chunks, text)
	r.events = append(r.events, "chunk:"+text)
}

func (r *recorder) status(s status.Status) {
	r.statuses = append(r.statuses, s)
	r.events = append(r.events, "status:"+string(s))
}

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(&config.Config{
		Endpoint:    url,
		Model:       "codellama:7b",
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   2000,
	})
}

func ndjsonServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStream_SendsGenerationRequest(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, generatePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprintln(w, `{"done":true}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	req := GenerationRequest{Prompt: "hello", Model: "codellama:7b", Options: Options{Temperature: 0.7, TopP: 0.9, MaxTokens: 2000}}
	require.NoError(t, c.Stream(context.Background(), req, nil, nil))

	assert.Equal(t, "codellama:7b", got.Model)
	assert.Equal(t, "hello", got.Prompt)
	assert.True(t, got.Stream)
	assert.Equal(t, 0.7, got.Options.Temperature)
	assert.Equal(t, 0.9, got.Options.TopP)
	assert.Equal(t, 2000, got.Options.MaxTokens)
	assert.Equal(t, 2000, got.Options.NumPredict)
}

func TestStream_ConcatenationMatchesFragments(t *testing.T) {
	cases := [][]string{
		{"a"},
		{"Hello", ", ", "world", "!"},
		{"line one\n", "line two\n", "```js\n", "const x = 1;\n", "```"},
		{"ünïcödé ", "日本語", " 🚀"},
	}

	for i, parts := range cases {
		t.Run(fmt.Sprintf("case%d", i), func(t *testing.T) {
			var body strings.Builder
			for _, p := range parts {
				line, _ := json.Marshal(StreamFragment{Response: p})
				body.Write(line)
				body.WriteByte('\n')
			}
			body.WriteString(`{"done":true}` + "\n")

			srv := ndjsonServer(t, body.String())
			rec := &recorder{}
			err := testClient(t, srv.URL).Stream(context.Background(), GenerationRequest{Prompt: "p"}, rec.chunk, rec.status)
			require.NoError(t, err)

			assert.Equal(t, strings.Join(parts, ""), strings.Join(rec.chunks, ""))
			assert.Equal(t, parts, rec.chunks)
			assert.Equal(t, []status.Status{status.Thinking, status.Applying, status.Done}, rec.statuses)
		})
	}
}

func TestStream_MalformedLinesAreSkipped(t *testing.T) {
	srv := ndjsonServer(t, "{\"response\":\"a\"}\n garbage \n{\"response\":\"b\"}\n{\"done\":true}")

	rec := &recorder{}
	err := testClient(t, srv.URL).Stream(context.Background(), GenerationRequest{}, rec.chunk, rec.status)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, rec.chunks)
	assert.Equal(t, []status.Status{status.Thinking, status.Applying, status.Done}, rec.statuses)
}

func TestStream_BlankLinesAndNonObjectsIgnored(t *testing.T) {
	srv := ndjsonServer(t, "\n\n{\"response\":\"x\"}\r\n123\n[]\n\n{\"response\":\"\",\"done\":true}\n")

	rec := &recorder{}
	require.NoError(t, testClient(t, srv.URL).Stream(context.Background(), GenerationRequest{}, rec.chunk, rec.status))

	assert.Equal(t, []string{"x"}, rec.chunks)
	assert.Equal(t, status.Done, rec.statuses[len(rec.statuses)-1])
}

func TestStream_DoneFragmentMayCarryText(t *testing.T) {
	srv := ndjsonServer(t, `{"response":"tail","done":true}`+"\n")

	rec := &recorder{}
	require.NoError(t, testClient(t, srv.URL).Stream(context.Background(), GenerationRequest{}, rec.chunk, rec.status))

	assert.Equal(t, []string{"status:thinking", "chunk:tail", "status:applying", "status:done"}, rec.events)
}

func TestStream_CancelledBeforeStart(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprintln(w, `{"response":"never"}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	err := testClient(t, srv.URL).Stream(ctx, GenerationRequest{}, rec.chunk, rec.status)
	require.NoError(t, err)

	assert.Empty(t, rec.chunks)
	assert.Equal(t, []status.Status{status.Thinking, status.Cancelled}, rec.statuses)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestStream_CancelledMidStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"response":"first"}`)
		flusher.Flush()
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		fmt.Fprintln(w, `{"response":"second"}`)
		fmt.Fprintln(w, `{"done":true}`)
		flusher.Flush()
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	onChunk := func(text string) {
		rec.chunk(text)
		cancel()
	}
	err := testClient(t, srv.URL).Stream(ctx, GenerationRequest{}, onChunk, rec.status)
	require.NoError(t, err)

	assert.Equal(t, []string{"first"}, rec.chunks)
	assert.Equal(t, []status.Status{status.Thinking, status.Cancelled}, rec.statuses)
}

func TestStream_CancelDropsBufferedFragments(t *testing.T) {
	// All fragments arrive in one write, so they are buffered together.
	srv := ndjsonServer(t, "{\"response\":\"a\"}\n{\"response\":\"b\"}\n{\"response\":\"c\"}\n{\"done\":true}\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	onChunk := func(text string) {
		rec.chunk(text)
		if text == "a" {
			cancel()
		}
	}
	require.NoError(t, testClient(t, srv.URL).Stream(ctx, GenerationRequest{}, onChunk, rec.status))

	assert.Equal(t, []string{"a"}, rec.chunks)
	assert.Equal(t, status.Cancelled, rec.statuses[len(rec.statuses)-1])
}

func TestStream_CancelDuringPacingDelay(t *testing.T) {
	srv := ndjsonServer(t, "{\"response\":\"a\"}\n{\"done\":true}\n")

	c := testClient(t, srv.URL)
	c.pacingDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	onStatus := func(s status.Status) {
		rec.status(s)
		if s == status.Applying {
			cancel()
		}
	}
	require.NoError(t, c.Stream(ctx, GenerationRequest{}, rec.chunk, onStatus))

	assert.Equal(t, []status.Status{status.Thinking, status.Applying, status.Cancelled}, rec.statuses)
}

func TestStream_PacingDelayBetweenApplyingAndDone(t *testing.T) {
	srv := ndjsonServer(t, `{"done":true}`+"\n")

	c := testClient(t, srv.URL)
	c.pacingDelay = 30 * time.Millisecond

	var applyingAt, doneAt time.Time
	onStatus := func(s status.Status) {
		switch s {
		case status.Applying:
			applyingAt = time.Now()
		case status.Done:
			doneAt = time.Now()
		}
	}
	require.NoError(t, c.Stream(context.Background(), GenerationRequest{}, nil, onStatus))

	require.False(t, applyingAt.IsZero())
	require.False(t, doneAt.IsZero())
	assert.GreaterOrEqual(t, doneAt.Sub(applyingAt), 30*time.Millisecond)
}

func TestStream_NonSuccessStatusFailsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'codellama:7b' not found, try pulling it first"}`)
	}))
	defer srv.Close()

	rec := &recorder{}
	err := testClient(t, srv.URL).Stream(context.Background(), GenerationRequest{Model: "codellama:7b"}, rec.chunk, rec.status)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrRequestFailed)
	var rf *RequestFailedError
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, http.StatusNotFound, rf.StatusCode)
	assert.Contains(t, err.Error(), "ollama pull codellama:7b")
	assert.Empty(t, rec.chunks)
	assert.Equal(t, []status.Status{status.Thinking, status.Error}, rec.statuses)
}

func TestStream_TransportErrorReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := &recorder{}
	err := testClient(t, url).Stream(context.Background(), GenerationRequest{}, rec.chunk, rec.status)
	require.NoError(t, err)

	assert.Empty(t, rec.chunks)
	assert.Equal(t, []status.Status{status.Thinking, status.Error}, rec.statuses)
}

func TestStream_TruncatedBodyReportsError(t *testing.T) {
	srv := ndjsonServer(t, "{\"response\":\"partial\"}\n")

	rec := &recorder{}
	require.NoError(t, testClient(t, srv.URL).Stream(context.Background(), GenerationRequest{}, rec.chunk, rec.status))

	assert.Equal(t, []string{"partial"}, rec.chunks)
	assert.Equal(t, []status.Status{status.Thinking, status.Error}, rec.statuses)
}

func TestStream_InBandServerError(t *testing.T) {
	srv := ndjsonServer(t, "{\"response\":\"a\"}\n{\"error\":\"out of memory\"}\n{\"response\":\"b\"}\n")

	rec := &recorder{}
	require.NoError(t, testClient(t, srv.URL).Stream(context.Background(), GenerationRequest{}, rec.chunk, rec.status))

	assert.Equal(t, []string{"a"}, rec.chunks)
	assert.Equal(t, status.Error, rec.statuses[len(rec.statuses)-1])
}

func TestStream_MalformedCap(t *testing.T) {
	srv := ndjsonServer(t, "{\"response\":\"a\"}\nx\ny\nz\n{\"response\":\"b\"}\n{\"done\":true}\n")

	c := testClient(t, srv.URL)
	c.maxDecodeFailures = 2

	rec := &recorder{}
	require.NoError(t, c.Stream(context.Background(), GenerationRequest{}, rec.chunk, rec.status))

	assert.Equal(t, []string{"a"}, rec.chunks)
	assert.Equal(t, []status.Status{status.Thinking, status.Error}, rec.statuses)
}

func TestStream_MalformedCapCountsConsecutiveOnly(t *testing.T) {
	srv := ndjsonServer(t, "x\ny\n{\"response\":\"a\"}\nx\ny\n{\"done\":true}\n")

	c := testClient(t, srv.URL)
	c.maxDecodeFailures = 2

	rec := &recorder{}
	require.NoError(t, c.Stream(context.Background(), GenerationRequest{}, rec.chunk, rec.status))

	assert.Equal(t, []string{"a"}, rec.chunks)
	assert.Equal(t, status.Done, rec.statuses[len(rec.statuses)-1])
}

func TestStream_SequentialStreamsDoNotInterleave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "{\"response\":\"%s%d\"}\n", req.Prompt, i)
		}
		fmt.Fprintln(w, `{"done":true}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	rec := &recorder{}
	require.NoError(t, c.Stream(context.Background(), GenerationRequest{Prompt: "a"}, rec.chunk, rec.status))
	require.NoError(t, c.Stream(context.Background(), GenerationRequest{Prompt: "b"}, rec.chunk, rec.status))

	assert.Equal(t, []string{
		"status:thinking", "chunk:a0", "chunk:a1", "chunk:a2", "status:applying", "status:done",
		"status:thinking", "chunk:b0", "chunk:b1", "chunk:b2", "status:applying", "status:done",
	}, rec.events)
}

func TestStream_DrivesStatusController(t *testing.T) {
	srv := ndjsonServer(t, "{\"response\":\"a\"}\n{\"done\":true}\n")

	ctrl := status.NewController()
	onStatus := func(s status.Status) {
		if s == status.Thinking {
			ctrl.Start()
			return
		}
		require.NoError(t, ctrl.Apply(s))
	}
	require.NoError(t, testClient(t, srv.URL).Stream(context.Background(), GenerationRequest{}, nil, onStatus))

	assert.Equal(t, status.Done, ctrl.Current())
	assert.Equal(t, []status.Status{status.Thinking, status.Applying, status.Done}, ctrl.History())
}

func TestCollect(t *testing.T) {
	srv := ndjsonServer(t, "{\"response\":\"foo\"}\n{\"response\":\"bar\"}\n{\"done\":true}\n")

	text, final, err := Collect(context.Background(), testClient(t, srv.URL), GenerationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "foobar", text)
	assert.Equal(t, status.Done, final)
}
