package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/chrisuehlinger/eventdelegator/config"
	"github.com/chrisuehlinger/eventdelegator/delegator"
	"github.com/chrisuehlinger/eventdelegator/dom"
	"github.com/chrisuehlinger/eventdelegator/eventargs"
	"github.com/chrisuehlinger/eventdelegator/html"
	"github.com/chrisuehlinger/eventdelegator/js"
	"github.com/chrisuehlinger/eventdelegator/log"
	"github.com/chrisuehlinger/eventdelegator/metrics"
)

// fireFlags collects repeated -fire values.
type fireFlags []string

func (f *fireFlags) String() string {
	return strings.Join(*f, ",")
}

func (f *fireFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "eventdelegator:", err)
		os.Exit(1)
	}
}

func run(argv []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("eventdelegator", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	htmlPath := fs.String("html", "", "HTML document to load (required)")
	scriptPath := fs.String("script", "", "script to run after the document's inline scripts")
	showMetrics := fs.Bool("metrics", false, "print metrics in Prometheus text format on exit")
	var fires fireFlags
	fs.Var(&fires, "fire", "event to fire as type#elementId, may be repeated")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if *htmlPath == "" {
		return errors.New("-html is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	logger := log.NewLog("delegator")
	rt := js.NewRuntime()
	for _, l := range []*log.Log{logger, rt.Logger()} {
		l.DEBUG = l.DEBUG || cfg.Log.Debug
		if cfg.Log.Namespaces != "" {
			l.SetNamespaces(cfg.Log.Namespaces)
		}
	}

	f, err := os.Open(*htmlPath)
	if err != nil {
		return errors.Wrap(err, "open document")
	}
	doc, err := html.ParseReader(f)
	f.Close()
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(*htmlPath); err == nil {
		doc.SetURL("file://" + filepath.ToSlash(abs))
	}

	collector := metrics.New()
	enc := cfg.Encoding()
	executor := js.NewScriptExecutor(rt)
	executor.Observe(func(_ *dom.Event, componentID delegator.ComponentID, handlerID delegator.HandlerID, args eventargs.Args) {
		b, err := eventargs.Encode(args, enc)
		if err != nil {
			logger.Error("encode args for handler %d: %v", handlerID, err)
			return
		}
		if enc == eventargs.MsgPack {
			fmt.Fprintf(stdout, "%d %d %x\n", componentID, handlerID, b)
			return
		}
		fmt.Fprintf(stdout, "%d %d %s\n", componentID, handlerID, b)
	})
	executor.SetupDocument(doc,
		delegator.WithInstanceID(cfg.Delegator.InstanceID),
		delegator.WithRetainIdleListeners(cfg.Delegator.RetainIdleListeners),
		delegator.WithLogger(logger),
		delegator.WithMetrics(collector),
	)
	defer executor.Cleanup()

	for _, err := range executor.ExecuteScripts(doc) {
		logger.Error("script: %v", err)
	}
	if *scriptPath != "" {
		code, err := os.ReadFile(*scriptPath)
		if err != nil {
			return errors.Wrap(err, "read script")
		}
		if err := rt.ExecuteScript(string(code), *scriptPath); err != nil {
			return errors.Wrapf(err, "run %s", *scriptPath)
		}
	}

	rt.ClearErrors()
	for _, fire := range fires {
		eventType, id, ok := strings.Cut(fire, "#")
		if !ok || eventType == "" || id == "" {
			return errors.Errorf("invalid -fire value %q, want type#elementId", fire)
		}
		el := doc.GetElementById(id)
		if el == nil {
			return errors.Errorf("no element with id %q", id)
		}
		executor.DispatchEvent(el, eventType, dom.EventInit{
			Bubbles:    bubbles(eventType),
			Cancelable: true,
		})
	}

	handlerErrs := rt.Errors()
	for _, err := range handlerErrs {
		logger.Error("handler: %v", err)
	}

	if *showMetrics {
		if err := collector.WriteText(stdout); err != nil {
			return err
		}
	}
	if len(handlerErrs) > 0 {
		return errors.Wrapf(handlerErrs[0], "%d handler error(s) while firing events", len(handlerErrs))
	}
	return nil
}

// bubbles reports whether a synthetic event of this type bubbles.
func bubbles(eventType string) bool {
	switch eventType {
	case "focus", "blur", "mouseenter", "mouseleave", "load", "scroll":
		return false
	}
	return true
}
