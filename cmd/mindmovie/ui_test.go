package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/spf13/cobra"
)

func TestTerminalUIKeepsInputAfterCancelledRead(t *testing.T) {
	pr, pw := io.Pipe()
	cmd := &cobra.Command{}
	cmd.SetIn(pr)
	var out bytes.Buffer
	cmd.SetOut(&out)
	ui := newTerminalUI(cmd)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ui.ReadLine(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("ReadLine on cancelled context = %v, want context.Canceled", err)
	}
	if _, err := ui.confirm(cancelled, "Proceed?"); !errors.Is(err, context.Canceled) {
		t.Fatalf("confirm on cancelled context = %v, want context.Canceled", err)
	}

	go func() {
		fmt.Fprint(pw, "yes\nI want to run a marathon\n")
		pw.Close()
	}()

	ctx := context.Background()
	ok, err := ui.confirm(ctx, "Proceed?")
	if err != nil || !ok {
		t.Fatalf("confirm = %v, %v; want true", ok, err)
	}
	line, err := ui.ReadLine(ctx)
	if err != nil || line != "I want to run a marathon" {
		t.Fatalf("ReadLine = %q, %v", line, err)
	}
	if _, err := ui.ReadLine(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after input closed, got %v", err)
	}
	if ok, err := ui.confirm(ctx, "Again?"); ok || err != nil {
		t.Fatalf("confirm after EOF = %v, %v; want false, nil", ok, err)
	}
}
