// Command scxmlctl drives a statechart document from stdin event names,
// printing the active configuration (and, with -dot, a DOT snapshot)
// after every event.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/statecraft-run/scxml/builder"
	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/engine"
	"github.com/statecraft-run/scxml/event"
	"github.com/statecraft-run/scxml/publish"
	"github.com/statecraft-run/scxml/registry"
	"github.com/statecraft-run/scxml/snapshot"
	"github.com/statecraft-run/scxml/visualize"
)

func main() {
	dotPtr := flag.Bool("dot", false, "print a DOT snapshot after every event")
	tracePtr := flag.Bool("trace", false, "print every processed event to stderr")
	snapshotDirPtr := flag.String("snapshot-dir", "", "directory to persist JSON snapshots to (disabled if empty)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "scxmlctl drives a built-in traffic-light document from stdin event names.")
		fmt.Fprintln(os.Stderr, "Usage: scxmlctl [-dot] [-trace] [-snapshot-dir DIR]")
		fmt.Fprintln(os.Stderr, "Each line of stdin is an event name; \"quit\" exits.")
	}
	flag.Parse()

	doc, err := buildTrafficLight()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build:", err)
		os.Exit(1)
	}

	opts := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))),
		engine.WithVisualizer(&visualize.DefaultVisualizer{}),
		engine.WithRegistry(registry.New()),
	}
	if *snapshotDirPtr != "" {
		p, err := snapshot.NewFilePersister(*snapshotDirPtr, snapshot.FormatJSON, doc)
		if err != nil {
			fmt.Fprintln(os.Stderr, "snapshot dir:", err)
			os.Exit(1)
		}
		opts = append(opts, engine.WithPersister(p))
	}
	if *tracePtr {
		pub := publish.NewChannel(16)
		opts = append(opts, engine.WithPublisher(pub))
		go func() {
			for n := range pub.Events() {
				fmt.Fprintf(os.Stderr, "processed %q leaves=%s\n", n.Event.Name, n.Meta.Transition)
			}
		}()
	}

	m, err := engine.New(doc, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "new machine:", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "initialize:", err)
		os.Exit(1)
	}
	report(m, *dotPtr)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		name := scanner.Text()
		if name == "" {
			continue
		}
		if name == "quit" {
			return
		}
		if m.IsTerminated() {
			fmt.Println("machine terminated, ignoring further events")
			continue
		}
		if err := m.SendEvent(ctx, event.New(name, nil)); err != nil {
			fmt.Fprintln(os.Stderr, "send event:", err)
			continue
		}
		report(m, *dotPtr)
	}
}

func report(m *engine.Machine, dot bool) {
	fmt.Println("configuration:", m.ActiveLeaves())
	if dot {
		v := &visualize.DefaultVisualizer{}
		fmt.Println(v.ExportDOT(m.Document(), m.ActiveLeaves()))
	}
}

// buildTrafficLight constructs the same three-state cycle used across
// this module's tests, as a default document for a host that hasn't
// wired up document.FromJSON/FromYAML with its own document yet.
func buildTrafficLight() (*document.Document, error) {
	b := builder.New("scxmlctl", "traffic-light").WithInitial("red")
	b.State("red", document.RootID).Transition(builder.TransitionSpec{Event: []string{"timer"}, Targets: []document.StateID{"green"}})
	b.State("green", document.RootID).Transition(builder.TransitionSpec{Event: []string{"timer"}, Targets: []document.StateID{"yellow"}})
	b.State("yellow", document.RootID).Transition(builder.TransitionSpec{Event: []string{"timer"}, Targets: []document.StateID{"red"}})
	return b.Build()
}
