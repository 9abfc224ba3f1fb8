package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScope/internal/model"
)

func sampleResult() *model.Result {
	return &model.Result{
		Symbol: "SPX500",
		Bars:   1250,
		Pivots: model.NewPivotSet([]int{4, 8}, []int{2, 7, 10}),
		Closes: []float64{100, 105, 100.5, 104, 106, 103, 97, 95, 99.5, 103, 100.2, 104},
		Support: []model.Trendline{{
			Polarity:         model.Support,
			Line:             model.Line{Slope: 0, Intercept: 100, Anchor: 2},
			SupportingPoints: []int{2, 10},
			Events: model.Events{
				FirstTouch: 2, Touches: []int{2, 10}, Breakouts: []int{6}, Throwbacks: []int{8},
			},
			Score: 13,
			Range: 10,
		}},
		Stats: []model.PolarityStats{{Polarity: "support", Anchors: 3, Candidates: 1, Scored: 1, Accepted: 1}},
	}
}

func TestFormatReport(t *testing.T) {
	out := FormatReport(sampleResult())

	assert.Contains(t, out, "SPX500 | 1,250 bars")
	assert.Contains(t, out, "Support lines (1)")
	assert.Contains(t, out, "anchor 2")
	assert.Contains(t, out, "supporting: 2, 10")
	assert.Contains(t, out, "Resistance lines (0)")
	assert.Contains(t, out, "bar 8  support  price 99.50  line 100.00")
}

func TestFormatSummary_EscapesHTML(t *testing.T) {
	res := sampleResult()
	res.Symbol = "A<B>"
	out := FormatSummary(res, "run-1", 1500*time.Millisecond)

	assert.Contains(t, out, "A&lt;B&gt;")
	assert.Contains(t, out, "Throwbacks: 1 (latest bar 8, support at 99.50)")
	assert.Contains(t, out, "Best: support from bar 2, score 13")
	assert.Contains(t, out, "run run-1, 1.5s")
}

func TestFormatJSON(t *testing.T) {
	data, err := FormatJSON(sampleResult())
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &got))
	assert.JSONEq(t, `[]`, string(got["resistance"]))
	assert.JSONEq(t, `{"highs":[4,8],"lows":[2,7,10]}`, string(got["pivots"]))
	assert.JSONEq(t, `[{"index":8,"polarity":"support","price":99.5,"line_value":100,"anchor":2}]`,
		string(got["throwback_signals"]))

	var support []struct {
		Events struct {
			Throwbacks []int `json:"throwbacks"`
		} `json:"events"`
		Score float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal(got["support"], &support))
	require.Len(t, support, 1)
	assert.Equal(t, []int{8}, support[0].Events.Throwbacks)
	assert.Equal(t, 13.0, support[0].Score)
}

func newTestNotifier(t *testing.T, h http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	n.Backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "hello", payload["text"])
		assert.Equal(t, "HTML", payload["parse_mode"])
	})
	require.NoError(t, n.Send(context.Background(), "hello"))
}

func TestSendWithRetry(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
		}
	})
	require.NoError(t, n.SendWithRetry(context.Background(), "hi", 3))
	assert.Equal(t, 3, attempts)
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	err := n.SendWithRetry(context.Background(), "hi", 2)
	assert.ErrorContains(t, err, "all 3 retries exhausted")
	assert.ErrorContains(t, err, "status 502")
}

func TestPoll_DispatchesCommandsAndReplies(t *testing.T) {
	var mu sync.Mutex
	var replies []string
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			_, _ = io.WriteString(w, `{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /lines "}},
				{"update_id":8},
				{"update_id":9,"message":{"text":"/quiet"}}]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			mu.Lock()
			replies = append(replies, payload["text"])
			mu.Unlock()
		}
	})

	var seen []string
	handler := func(_ context.Context, cmd string) string {
		seen = append(seen, cmd)
		if cmd == "/quiet" {
			return ""
		}
		return "reply to " + cmd
	}

	next, err := n.poll(context.Background(), n.Client, 7, handler)
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/lines", "/quiet"}, seen)
	assert.Equal(t, []string{"reply to /lines"}, replies)
}

func TestPoll_BadBody(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	})
	next, err := n.poll(context.Background(), n.Client, 3, func(context.Context, string) string { return "" })
	assert.Error(t, err)
	assert.Equal(t, 3, next)
}

func TestStartPolling_StopsOnCancel(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(context.Context, string) string { return "" })
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not stop")
	}
}
