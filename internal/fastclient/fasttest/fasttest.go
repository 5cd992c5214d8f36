// Package fasttest serves fasthttp handlers over an in-memory listener for client tests.
package fasttest

import (
	"net"
	"testing"

	"github.com/park285/chess-narrator/internal/fastclient"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// Serve starts h and returns the client option that dials it.
func Serve(t testing.TB, h fasthttp.RequestHandler) fastclient.Option {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	return fastclient.WithDial(func(string) (net.Conn, error) { return ln.Dial() })
}
