/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"hdxremote/internal/client"
	"hdxremote/internal/machineid"
	"hdxremote/internal/protocol"
	"hdxremote/internal/transport"
	"hdxremote/pkg/spec"
)

const (
	app_name           = "HDX-Client"
	developer_title    = "Developer Hardiyanto"
	developer_subtitle = "Build 27/12/2025 Ebiet Version"
	prompt             = "hdx> "
	pollSlice          = 100 * time.Millisecond
)

type options struct {
	address  string
	port     int
	language string
	run      string
	halt     bool
	poll     bool
	timeout  time.Duration
}

func main() {
	var (
		opts    options
		silent  bool
		debug   bool
		version bool
	)
	flag.StringVarP(&opts.address, "address", "a", spec.DefaultAddress, "server host")
	flag.IntVarP(&opts.port, "port", "p", spec.DefaultPort, "server port")
	flag.StringVarP(&opts.language, "language", "l", "en", "language reported in the handshake")
	flag.StringVarP(&opts.run, "run", "r", "", `run one action, e.g. --run 'addItem "/music/a.wav"'`)
	flag.BoolVar(&opts.halt, "halt", false, "ask the server to stop")
	flag.BoolVar(&opts.poll, "poll", false, "print events until interrupted")
	flag.DurationVar(&opts.timeout, "timeout", spec.HandshakeTimeout, "handshake and reply timeout")
	flag.BoolVarP(&silent, "silent", "s", false, "log errors only")
	flag.BoolVar(&debug, "debug", false, "log debug messages")
	flag.BoolVarP(&version, "version", "v", false, "print version and exit")
	flag.Parse()

	if version {
		fmt.Printf("%s V.%d.%d (api %d)\n", app_name, spec.VersionMajor, spec.VersionMinor, spec.APIVersion)
		fmt.Printf("%s %s\n", developer_title, developer_subtitle)
		return
	}

	level := zerolog.WarnLevel
	switch {
	case silent:
		level = zerolog.ErrorLevel
	case debug:
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger, opts options) error {
	mid, err := machineid.ID()
	if err != nil {
		return err
	}
	hs := protocol.Handshake{
		Name:      app_name,
		Type:      protocol.ClientCommandLineInteractive,
		MachineID: mid,
		Language:  opts.language,
	}

	var oneShot []protocol.Invocation
	switch {
	case opts.halt:
		inv, err := protocol.NewInvocation("halt", true)
		if err != nil {
			return err
		}
		oneShot = append(oneShot, inv)
	case opts.run != "":
		inv, err := parseCommand(opts.run)
		if err != nil {
			return err
		}
		oneShot = append(oneShot, inv)
	}
	if len(oneShot) > 0 {
		hs.Type = protocol.ClientCommandLineAction
		hs.Actions = protocol.EncodeBatch(oneShot)
	}

	sock := transport.NewDealer(log, client.NewIdentity(), opts.timeout)
	address := fmt.Sprintf("%s:%d", opts.address, opts.port)
	c, err := client.Dial(ctx, sock, address, hs, opts.timeout, log)
	if err != nil {
		return err
	}
	defer c.Close()
	c.ReplyTimeout = opts.timeout

	if len(oneShot) > 0 {
		failed := false
		for _, r := range c.Server().ActionReplies {
			fmt.Println(formatReply(r))
			failed = failed || !r.Success
		}
		if failed {
			return errors.New("action failed")
		}
		return nil
	}

	server := c.Server()
	if opts.poll {
		c.OnEvent(func(e protocol.EventMessage) { fmt.Println(formatEvent(e)) })
		for {
			if _, err := c.PollEvents(ctx, time.Second); err != nil {
				return err
			}
		}
	}

	fmt.Printf("\n%s V.%d.%d\n", app_name, spec.VersionMajor, spec.VersionMinor)
	fmt.Printf("%s %s\n", developer_title, developer_subtitle)
	fmt.Printf("Connected to %s on %s (api %d)\n", server.Name, server.DeviceName, server.APIVersion)
	fmt.Println(`Type an action with arguments, "quit" to exit`)
	fmt.Println()
	return interactive(ctx, c)
}

type request struct {
	inv   protocol.Invocation
	reply chan result
}

type result struct {
	replies []protocol.Reply
	err     error
}

// interactive reads lines with readline while a single owner goroutine
// talks to the server, so events keep flowing between commands.
func interactive(ctx context.Context, c *client.Client) error {
	names := actionNames(ctx, c)
	items := make([]readline.PrefixCompleterInterface, 0, len(names)+2)
	for _, n := range names {
		items = append(items, readline.PcItem(n))
	}
	items = append(items, readline.PcItem("quit"), readline.PcItem("exit"))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return errors.Wrap(err, "readline")
	}
	defer rl.Close()

	c.OnEvent(func(e protocol.EventMessage) { fmt.Fprintln(rl.Stdout(), formatEvent(e)) })

	ctx, cancel := context.WithCancel(ctx)
	requests := make(chan request)
	owner := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		owner <- serve(ctx, c, requests)
	}()
	// the owner must be gone before the caller closes the client
	defer func() {
		cancel()
		<-done
	}()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "quit", "exit":
			fmt.Println("Bye.")
			return nil
		}
		inv, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(rl.Stderr(), "error:", err)
			continue
		}
		req := request{inv: inv, reply: make(chan result, 1)}
		select {
		case requests <- req:
		case err := <-owner:
			return err
		}
		res := <-req.reply
		if res.err != nil {
			fmt.Fprintln(rl.Stderr(), "error:", res.err)
			continue
		}
		for _, r := range res.replies {
			fmt.Fprintln(rl.Stdout(), formatReply(r))
		}
	}
}

func serve(ctx context.Context, c *client.Client, requests <-chan request) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-requests:
			replies, err := c.Call(ctx, req.inv)
			req.reply <- result{replies: replies, err: err}
		default:
			if _, err := c.PollEvents(ctx, pollSlice); err != nil {
				return err
			}
		}
	}
}

func actionNames(ctx context.Context, c *client.Client) []string {
	inv, err := protocol.NewInvocation("getActions", true)
	if err != nil {
		return nil
	}
	replies, err := c.Call(ctx, inv)
	if err != nil || len(replies) != 1 || !replies[0].Success {
		return nil
	}
	return decodeNames(replies[0].Result)
}
