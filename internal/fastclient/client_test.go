package fastclient_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/chess-narrator/internal/fastclient"
	"github.com/park285/chess-narrator/internal/fastclient/fasttest"
	"github.com/valyala/fasthttp"
)

func TestDoJSONRoundTrip(t *testing.T) {
	dial := fasttest.Serve(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Method()) != fasthttp.MethodPost || string(ctx.Path()) != "/echo" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		if string(ctx.QueryArgs().Peek("key")) != "k1" || string(ctx.UserAgent()) != "narrator-test" {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBody(ctx.PostBody())
	})
	c := fastclient.New("http://upstream/", dial, fastclient.WithUserAgent("narrator-test"))

	var out map[string]string
	err := c.DoJSON(context.Background(), fasthttp.MethodPost, "/echo", url.Values{"key": {"k1"}}, map[string]string{"a": "b"}, &out, false)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out["a"] != "b" {
		t.Fatalf("unexpected echo %v", out)
	}
}

func TestHeaderProviderAddsHeaders(t *testing.T) {
	dial := fasttest.Serve(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Request.Header.Peek("X-Api-Key")) != "k2" || len(ctx.Request.Header.Peek("X-Empty")) != 0 {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
		ctx.SetBodyString("{}")
	})
	c := fastclient.New("http://upstream", dial, fastclient.WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Api-Key": "k2", "X-Empty": " "}
	}))
	if err := c.DoJSON(context.Background(), fasthttp.MethodGet, "/h", nil, nil, nil, false); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
}

func TestMaxConnsPerHostQueuesRequests(t *testing.T) {
	var active, peak int32
	dial := fasttest.Serve(t, func(ctx *fasthttp.RequestCtx) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		ctx.SetBodyString("{}")
	})
	c := fastclient.New("http://upstream", dial, fastclient.WithMaxConnsPerHost(1))

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.DoJSON(context.Background(), fasthttp.MethodGet, "/slow", nil, nil, nil, false)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("queued request failed: %v", err)
		}
	}
	if got := atomic.LoadInt32(&peak); got != 1 {
		t.Fatalf("peak concurrent requests = %d, want 1", got)
	}
}

func TestRetriesTemporaryStatus(t *testing.T) {
	var hits int32
	dial := fasttest.Serve(t, func(ctx *fasthttp.RequestCtx) {
		if atomic.AddInt32(&hits, 1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetBodyString("ok")
	})
	c := fastclient.New("http://upstream", dial, fastclient.WithRetry(3))

	body, err := c.Do(context.Background(), fastclient.Request{Path: "/flaky", Retry: true})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(body) != "ok" || atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("body=%q hits=%d", body, hits)
	}
}

func TestPermanentStatusIsNotRetried(t *testing.T) {
	var hits int32
	dial := fasttest.Serve(t, func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&hits, 1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("bad input")
	})
	c := fastclient.New("http://upstream", dial, fastclient.WithRetry(5))

	_, err := c.Do(context.Background(), fastclient.Request{Path: "/x", Retry: true})
	var se *fastclient.StatusError
	if !errors.As(err, &se) || se.Status != 400 || se.Body != "bad input" {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
	if fastclient.IsUnavailable(err) {
		t.Fatalf("400 must not count as unavailable")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected a single attempt, got %d", hits)
	}
}

func TestUnavailableClassification(t *testing.T) {
	dial := fasttest.Serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	c := fastclient.New("http://upstream", dial, fastclient.WithTimeout(2*time.Second))
	_, err := c.Do(context.Background(), fastclient.Request{Path: "/"})
	if !fastclient.IsUnavailable(err) {
		t.Fatalf("502 should be unavailable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Do(ctx, fastclient.Request{Path: "/"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
