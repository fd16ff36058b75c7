package signtype_test

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/bft-labs/signtype/pkg/signtype"
)

// ExampleNew demonstrates how to embed the server in an application.
func ExampleNew() {
	cfg := signtype.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"

	srv, err := signtype.New(cfg)
	if err != nil {
		fmt.Printf("failed to create server: %v\n", err)
		return
	}
	fmt.Println("vocabulary:", srv.Vocabulary().Size())

	if err := srv.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}
	fmt.Println("status:", srv.Status())

	_ = srv.Stop()
	fmt.Println("status:", srv.Status())

	// Output:
	// vocabulary: 28
	// status: Running
	// status: Stopped
}

// ExampleServer_Handler mounts the server routes without binding a listener.
func ExampleServer_Handler() {
	srv, err := signtype.New(signtype.DefaultConfig())
	if err != nil {
		fmt.Printf("failed to create server: %v\n", err)
		return
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	fmt.Println("websocket endpoint:", "ws"+ts.URL[len("http"):]+"/ws/detect")
}

// commitPrinter prints every committed edit.
type commitPrinter struct {
	signtype.BaseEventHandler
}

func (commitPrinter) OnCommit(e signtype.CommitEvent) {
	fmt.Printf("%s %s -> %q\n", e.Kind, e.Letter, e.Buffer)
}

// Example_withEventHandler shows how to observe commits.
func Example_withEventHandler() {
	srv, err := signtype.New(signtype.DefaultConfig(),
		signtype.WithEventHandler(commitPrinter{}))
	if err != nil {
		fmt.Printf("failed to create server: %v\n", err)
		return
	}
	_ = srv
}
