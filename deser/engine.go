package deser

import (
	"reflect"

	"github.com/facet-rs/facet-sub005/fconfig"
	"github.com/facet-rs/facet-sub005/shape"
)

// RequestKind tags which Request variant is active, mirroring the
// Request/Response enum pair from the coroutine deserializer (§4.6).
type RequestKind int

const (
	ReqExpectEvent RequestKind = iota
	ReqExpectPeek
	ReqPeekEventRaw
	ReqSkipValue
	ReqDeserializeInto
	ReqGetSpan
	ReqSolveVariant
	ReqHintEnum
)

// Request is sent from the engine goroutine to the driving Run loop each
// time the recursive descent needs something only the parser or solver can
// supply.
type Request struct {
	Kind RequestKind

	// ReqDeserializeInto
	Target *shape.Shape

	// ReqSolveVariant
	EnumShape *shape.Shape
	SeenKeys  []string

	reply chan Response
}

// Response is sent back from Run to unblock the engine goroutine.
type Response struct {
	Event   ParseEvent
	MaybeOK bool
	Span    Span
	HasSpan bool
	Value   reflect.Value
	Err     error

	VariantName string
	HasVariant  bool
}

// Coroutine is the goroutine-backed stand-in for the reference
// implementation's stackful fiber: Next() returns the Request the engine
// goroutine is blocked on; Request.Resume() sends the matching Response
// and lets the engine goroutine continue until its next Request or
// completion.
type Coroutine struct {
	reqCh  chan Request
	done   chan struct{}
	result reflect.Value
	err    error
}

// Start launches the recursive-descent body in its own goroutine, which
// blocks on reqCh the moment it needs a Response. cfg.CoroutineStackSize
// has no direct Go analogue (goroutine stacks grow on demand) and is not
// read here. cfg.MaxProbeDepth is copied into the engine context, but no
// code path checks probe nesting against it.
func Start(cfg *fconfig.DeserConfig, s *shape.Shape, body func(c *engineCtx)) *Coroutine {
	co := &Coroutine{
		reqCh: make(chan Request),
		done:  make(chan struct{}),
	}
	ctx := &engineCtx{reqCh: co.reqCh, shape: s, cfg: cfg, maxProbeDepth: cfg.MaxProbeDepth}
	go func() {
		defer close(co.done)
		body(ctx)
		co.result = ctx.builtValue
		co.err = ctx.finalErr
	}()
	return co
}

// Next blocks until the engine goroutine issues its next Request, or
// returns ok=false once the goroutine has finished.
func (c *Coroutine) Next() (Request, bool) {
	select {
	case req, ok := <-c.reqCh:
		return req, ok
	case <-c.done:
		return Request{}, false
	}
}

// Resume sends resp as the answer to the Request most recently returned
// from Next.
func (req Request) Resume(resp Response) {
	req.reply <- resp
}

// Wait blocks until the engine goroutine has fully finished and returns
// its final value/error.
func (c *Coroutine) Wait() (reflect.Value, error) {
	<-c.done
	return c.result, c.err
}

// engineCtx is threaded through the recursive-descent body; its ask method
// is the only way the body communicates with the outside world, exactly
// mirroring the Request/Response round trip in the reference coroutine.
type engineCtx struct {
	reqCh         chan Request
	shape         *shape.Shape
	cfg           *fconfig.DeserConfig
	maxProbeDepth int
	probeDepth    int

	builtValue reflect.Value
	finalErr   error
}

func (e *engineCtx) ask(req Request) Response {
	req.reply = make(chan Response)
	e.reqCh <- req
	return <-req.reply
}

// ExpectEvent requests and returns the next parser event.
func (e *engineCtx) ExpectEvent() (ParseEvent, error) {
	resp := e.ask(Request{Kind: ReqExpectEvent})
	return resp.Event, resp.Err
}

// PeekEventRaw requests the next event without consuming it.
func (e *engineCtx) PeekEventRaw() (ParseEvent, bool, error) {
	resp := e.ask(Request{Kind: ReqPeekEventRaw})
	return resp.Event, resp.MaybeOK, resp.Err
}

// SkipValue asks the driver to discard the next complete value.
func (e *engineCtx) SkipValue() error {
	resp := e.ask(Request{Kind: ReqSkipValue})
	return resp.Err
}

// GetSpan asks for the most recently consumed span, if any.
func (e *engineCtx) GetSpan() (Span, bool) {
	resp := e.ask(Request{Kind: ReqGetSpan})
	return resp.Span, resp.HasSpan
}

// SolveVariant asks the driver to run solver against seenKeys for
// enumShape and report the unique matching variant name, if any.
func (e *engineCtx) SolveVariant(enumShape *shape.Shape, seenKeys []string) (string, bool, error) {
	resp := e.ask(Request{Kind: ReqSolveVariant, EnumShape: enumShape, SeenKeys: seenKeys})
	return resp.VariantName, resp.HasVariant, resp.Err
}

// DeserializeInto asks the driver to recursively deserialize a nested
// value of shape target completely, returning a built reflect.Value.
// dispatch.go does not call it: flatten routing and enum probing replay
// captured events through dispatchViaBuffer or a nested Start/Run instead.
func (e *engineCtx) DeserializeInto(target *shape.Shape) (reflect.Value, error) {
	resp := e.ask(Request{Kind: ReqDeserializeInto, Target: target})
	return resp.Value, resp.Err
}

// Finish records the completed build and ends the coroutine body.
func (e *engineCtx) Finish(v reflect.Value, err error) {
	e.builtValue = v
	e.finalErr = err
}
