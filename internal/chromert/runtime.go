// Package chromert drives a Chrome instance over the DevTools protocol. It
// owns tab discovery, probe injection and messaging, and page state capture
// for the recorder.
package chromert

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/scribe/core"
	"pkt.systems/scribe/schema"
)

//go:embed probe.js
var probeScript string

// emitBinding is the page->recorder channel; the probe calls
// window.scribeEmit with a JSON-encoded probe message.
const emitBinding = "scribeEmit"

// ProbeSink receives messages pushed by in-page probes.
type ProbeSink func(tabID schema.TabID, msg schema.ProbeMessage)

// Options configures the browser instance.
type Options struct {
	// Headless runs Chrome without a visible window.
	Headless bool
	// ExecPath overrides the Chrome binary location.
	ExecPath string
	// UserDataDir points Chrome at a persistent profile.
	UserDataDir string
}

type tabHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Runtime is a live browser. It implements the recorder's tab runtime and
// state capturer.
type Runtime struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	log           pslog.Logger

	mu        sync.Mutex
	tabs      map[schema.TabID]*tabHandle
	known     map[schema.TabID]schema.TabRef
	active    schema.TabID
	observers map[int]core.TabObserver
	nextObs   int
	sink      ProbeSink
}

// New launches a browser and starts listening for target lifecycle events.
func New(ctx context.Context, opts Options, logger pslog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser start: %w", err)
	}
	r := &Runtime{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		log:           logger,
		tabs:          make(map[schema.TabID]*tabHandle),
		known:         make(map[schema.TabID]schema.TabRef),
		observers:     make(map[int]core.TabObserver),
	}
	chromedp.ListenBrowser(browserCtx, r.browserListener)
	logger.Info("browser started", "headless", opts.Headless)
	return r, nil
}

// Close tears down all tab attachments and the browser.
func (r *Runtime) Close() {
	r.mu.Lock()
	handles := make([]*tabHandle, 0, len(r.tabs))
	for _, h := range r.tabs {
		handles = append(handles, h)
	}
	r.tabs = make(map[schema.TabID]*tabHandle)
	r.mu.Unlock()
	for _, h := range handles {
		h.cancel()
	}
	r.browserCancel()
	r.allocCancel()
}

// SetProbeSink routes pushed probe messages. Must be set before recording
// starts; messages arriving with no sink are dropped.
func (r *Runtime) SetProbeSink(sink ProbeSink) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

// Subscribe registers a tab lifecycle observer and returns a cancel func.
func (r *Runtime) Subscribe(obs core.TabObserver) func() {
	r.mu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = obs
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

// QueryActiveTab returns the tab current input focus points at, falling
// back to the first page target when none has been tracked yet.
func (r *Runtime) QueryActiveTab(ctx context.Context) (schema.TabRef, error) {
	r.mu.Lock()
	if r.active != "" {
		if tab, ok := r.known[r.active]; ok {
			r.mu.Unlock()
			return tab, nil
		}
	}
	r.mu.Unlock()
	infos, err := chromedp.Targets(r.browserCtx)
	if err != nil {
		return schema.TabRef{}, err
	}
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		tab := refFromInfo(info)
		r.mu.Lock()
		r.known[tab.ID] = tab
		r.active = tab.ID
		r.mu.Unlock()
		return tab, nil
	}
	return schema.TabRef{}, fmt.Errorf("no page targets")
}

// GetTab resolves a tab by id.
func (r *Runtime) GetTab(ctx context.Context, id schema.TabID) (schema.TabRef, error) {
	r.mu.Lock()
	if tab, ok := r.known[id]; ok {
		r.mu.Unlock()
		return tab, nil
	}
	r.mu.Unlock()
	infos, err := chromedp.Targets(r.browserCtx)
	if err != nil {
		return schema.TabRef{}, err
	}
	for _, info := range infos {
		if schema.TabID(info.TargetID) == id {
			tab := refFromInfo(info)
			r.mu.Lock()
			r.known[id] = tab
			r.mu.Unlock()
			return tab, nil
		}
	}
	return schema.TabRef{}, fmt.Errorf("tab %s not found", id)
}

// InjectProbe installs the capture probe into a tab. Safe to call on a tab
// that already carries a probe; the script is idempotent per document.
func (r *Runtime) InjectProbe(ctx context.Context, id schema.TabID) error {
	tctx, err := r.tabContext(id)
	if err != nil {
		return err
	}
	err = r.runOnTab(ctx, tctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return runtime.AddBinding(emitBinding).Do(ctx)
		}),
		chromedp.Evaluate(probeScript, nil),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", schema.ErrProbeUnreachable, err)
	}
	r.log.Debug("probe injected", "tab", id)
	return nil
}

// SendMessage delivers a control message to a tab's probe and returns the
// probe's reply.
func (r *Runtime) SendMessage(ctx context.Context, id schema.TabID, msg schema.ProbeMessage) (schema.ProbeMessage, error) {
	tctx, err := r.tabContext(id)
	if err != nil {
		return schema.ProbeMessage{}, err
	}
	expr, err := dispatchExpr(msg)
	if err != nil {
		return schema.ProbeMessage{}, err
	}
	var raw string
	if err := r.runOnTab(ctx, tctx, chromedp.Evaluate(expr, &raw)); err != nil {
		return schema.ProbeMessage{}, fmt.Errorf("%w: %v", schema.ErrProbeUnreachable, err)
	}
	reply, err := schema.DecodeProbeMessage([]byte(raw))
	if err != nil {
		return schema.ProbeMessage{}, fmt.Errorf("%w: %v", schema.ErrProbeUnreachable, err)
	}
	return reply, nil
}

// ActivateTab raises a tab in the browser and reports the switch to
// observers.
func (r *Runtime) ActivateTab(ctx context.Context, id schema.TabID) error {
	tctx, err := r.tabContext(id)
	if err != nil {
		return err
	}
	err = r.runOnTab(ctx, tctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return target.ActivateTarget(target.ID(id)).Do(ctx)
	}))
	if err != nil {
		return err
	}
	r.setActive(id)
	return nil
}

// NewTab opens a blank tab at the given URL and returns its ref.
func (r *Runtime) NewTab(ctx context.Context, url string) (schema.TabRef, error) {
	tctx, cancel := chromedp.NewContext(r.browserCtx)
	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		cancel()
		return schema.TabRef{}, err
	}
	chrome := chromedp.FromContext(tctx)
	if chrome == nil || chrome.Target == nil {
		cancel()
		return schema.TabRef{}, fmt.Errorf("no target for new tab")
	}
	id := schema.TabID(chrome.Target.TargetID)
	tab := schema.TabRef{ID: id, URL: url}
	r.mu.Lock()
	r.known[id] = tab
	r.tabs[id] = &tabHandle{ctx: tctx, cancel: cancel}
	r.mu.Unlock()
	chromedp.ListenTarget(tctx, r.targetListener(id))
	return tab, nil
}

// tabContext attaches to an existing target, caching one DevTools session
// per tab.
func (r *Runtime) tabContext(id schema.TabID) (context.Context, error) {
	r.mu.Lock()
	if h, ok := r.tabs[id]; ok {
		r.mu.Unlock()
		return h.ctx, nil
	}
	r.mu.Unlock()

	tctx, cancel := chromedp.NewContext(r.browserCtx, chromedp.WithTargetID(target.ID(id)))
	r.mu.Lock()
	if h, ok := r.tabs[id]; ok {
		// Lost the race; keep the first attachment.
		r.mu.Unlock()
		cancel()
		return h.ctx, nil
	}
	r.tabs[id] = &tabHandle{ctx: tctx, cancel: cancel}
	r.mu.Unlock()
	chromedp.ListenTarget(tctx, r.targetListener(id))
	return tctx, nil
}

// runOnTab runs actions against a tab while honoring the caller's deadline.
// chromedp.Run only respects its own context, so the wait happens here.
func (r *Runtime) runOnTab(ctx context.Context, tctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(tctx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// browserListener runs on the browser connection's read goroutine, which is
// also the only reader of CDP command responses. Observer callbacks issue
// CDP commands of their own, so they are fanned out on a separate goroutine;
// dispatching them inline would deadlock the connection.
func (r *Runtime) browserListener(ev interface{}) {
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		if e.TargetInfo == nil || e.TargetInfo.Type != "page" {
			return
		}
		tab := refFromInfo(e.TargetInfo)
		r.mu.Lock()
		r.known[tab.ID] = tab
		obs := r.observerList()
		r.mu.Unlock()
		go func() {
			for _, o := range obs {
				o.OnTabCreated(tab)
			}
		}()
	case *target.EventTargetInfoChanged:
		if e.TargetInfo == nil || e.TargetInfo.Type != "page" {
			return
		}
		tab := refFromInfo(e.TargetInfo)
		r.mu.Lock()
		r.known[tab.ID] = tab
		r.mu.Unlock()
		// Only attached tabs raise activation; the recorder attaches to
		// the tab the user is driving, so attachment tracks focus.
		if e.TargetInfo.Attached {
			r.setActive(tab.ID)
		}
	case *target.EventTargetDestroyed:
		id := schema.TabID(e.TargetID)
		r.mu.Lock()
		if _, ok := r.known[id]; !ok {
			r.mu.Unlock()
			return
		}
		delete(r.known, id)
		h := r.tabs[id]
		delete(r.tabs, id)
		if r.active == id {
			r.active = ""
		}
		obs := r.observerList()
		r.mu.Unlock()
		if h != nil {
			h.cancel()
		}
		go func() {
			for _, o := range obs {
				o.OnTabRemoved(id)
			}
		}()
	}
}

func (r *Runtime) targetListener(id schema.TabID) func(ev interface{}) {
	return func(ev interface{}) {
		e, ok := ev.(*runtime.EventBindingCalled)
		if !ok || e.Name != emitBinding {
			return
		}
		msg, err := schema.DecodeProbeMessage([]byte(e.Payload))
		if err != nil {
			r.log.Trace("probe message rejected", "tab", id, "err", err)
			return
		}
		r.mu.Lock()
		sink := r.sink
		r.mu.Unlock()
		if sink != nil {
			sink(id, msg)
		}
	}
}

func (r *Runtime) setActive(id schema.TabID) {
	r.mu.Lock()
	changed := r.active != id
	r.active = id
	obs := r.observerList()
	r.mu.Unlock()
	if !changed {
		return
	}
	go func() {
		for _, o := range obs {
			o.OnTabActivated(id)
		}
	}()
}

// observerList copies observers for calling outside the lock. Caller must
// hold r.mu.
func (r *Runtime) observerList() []core.TabObserver {
	out := make([]core.TabObserver, 0, len(r.observers))
	for _, o := range r.observers {
		out = append(out, o)
	}
	return out
}

func dispatchExpr(msg schema.ProbeMessage) (string, error) {
	data, err := schema.EncodeProbeMessage(msg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("window.__scribeDispatch(%s)", data), nil
}

func refFromInfo(info *target.Info) schema.TabRef {
	return schema.TabRef{
		ID:          schema.TabID(info.TargetID),
		URL:         info.URL,
		Title:       info.Title,
		OpenerTabID: schema.TabID(info.OpenerID),
	}
}
