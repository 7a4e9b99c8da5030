package utils

import (
	"net/http"
	"testing"
)

func TestGracefulServerChildDetection(t *testing.T) {
	srv := newGracefulServer(":0", http.NotFoundHandler())
	if srv.isChild {
		t.Fatal("fresh process must not adopt an inherited listener")
	}

	t.Setenv(gracefulEnvKey, "1")
	srv = newGracefulServer(":0", http.NotFoundHandler())
	if !srv.isChild {
		t.Fatal("restart child must adopt the inherited listener")
	}
}

func TestGracefulServerBindsFreshListener(t *testing.T) {
	srv := newGracefulServer("", http.NotFoundHandler())

	ln, err := srv.netListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("netListener: %v", err)
	}
	defer ln.Close()

	if ln.Addr().Network() != "tcp" {
		t.Errorf("listener network = %s, want tcp", ln.Addr().Network())
	}
}
