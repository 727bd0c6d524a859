package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestServerNotReady(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, refused := net.Dial("tcp", addr)
	if refused == nil {
		t.Skip("closed port accepted a connection")
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "connection refused", err: fmt.Errorf("ping: %w", refused), want: true},
		{name: "ping timeout", err: fmt.Errorf("ping: %w", context.DeadlineExceeded), want: true},
		{name: "other dial failure", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")}, want: false},
		{name: "api error", err: errors.New("404 not_found"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := serverNotReady(tc.err); got != tc.want {
				t.Fatalf("serverNotReady(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
