package parsers

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/payload"
)

var ErrUnknownParser = errors.New("unknown parser")

// Parser turns one submission into facts. The returned strings are for
// reporting only.
type Parser interface {
	Name() string
	Parse(pc *Context, rec payload.Record) []string
}

// Func adapts a plain function to Parser.
type Func struct {
	ParserName string
	Fn         func(pc *Context, rec payload.Record) []string
}

func (f Func) Name() string { return f.ParserName }

func (f Func) Parse(pc *Context, rec payload.Record) []string { return f.Fn(pc, rec) }

type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Default returns a registry holding every built-in parser.
func Default() *Registry {
	r := NewRegistry()
	for _, p := range []Parser{
		Func{ParserName: "vaccination", Fn: ParseVaccination},
		Func{ParserName: "outbreak", Fn: ParseOutbreak},
		Func{ParserName: "objective", Fn: ParseObjective},
		Func{ParserName: "inspection", Fn: ParseInspection},
		Func{ParserName: "trade_operation", Fn: ParseTradeOperation},
	} {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(p Parser) error {
	if p == nil {
		return fmt.Errorf("nil parser")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("parser Name() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.parsers[name]; exists {
		return fmt.Errorf("parser already registered for name=%s", name)
	}
	r.parsers[name] = p
	return nil
}

func (r *Registry) Get(name string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[name]
	return p, ok
}

// Validate fails for names that are not registered.
func (r *Registry) Validate(name string) error {
	if _, ok := r.Get(name); !ok {
		return fmt.Errorf("%w %q (known: %v)", ErrUnknownParser, name, r.Names())
	}
	return nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs p on one submission. A panic is converted into a failure
// message so the batch continues.
func Dispatch(p Parser, pc *Context, rec payload.Record) (msgs []string) {
	pc.Run.Processed()
	defer func() {
		if v := recover(); v != nil {
			pc.Run.Failed()
			id := rec.ID()
			pc.logger().Error("parser panic", "parser", p.Name(), "external_id", id, "panic", v)
			msgs = append(msgs, fmt.Sprintf("[%s] failed: panic: %v", id, v))
		}
	}()
	return p.Parse(pc, rec)
}
