package presence

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/directory"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/visitor"
)

var wib = time.FixedZone("WIB", 7*60*60)

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 17, hour, minute, 0, 0, wib)
}

func rec(id string, ts time.Time) punch.Record {
	return punch.Record{PersonID: id, Timestamp: ts.Format(time.RFC3339), FirstName: "First-" + id, LastName: "Last"}
}

// fakeFeed pages through records pageSize at a time.
type fakeFeed struct {
	mu       sync.Mutex
	records  []punch.Record
	pageSize int
	err      error
	calls    int
}

func (f *fakeFeed) add(r ...punch.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r...)
}

func (f *fakeFeed) FetchPage(_ context.Context, _ punch.Window, token string) (punch.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return punch.Page{}, f.err
	}

	size := f.pageSize
	if size <= 0 {
		size = 1000
	}
	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := min(start+size, len(f.records))

	page := punch.Page{Records: slices.Clone(f.records[start:end])}
	if end < len(f.records) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

type fakePresenceRepo struct {
	mu              sync.Mutex
	entries         map[string]presence.Entry
	overrides       map[string]presence.Override
	applies         int
	listErr         error
	applyErr        error
	checkoutErr     error
	panicOnList     bool
	panicOnCheckout bool
}

func newFakePresenceRepo(entries ...presence.Entry) *fakePresenceRepo {
	r := &fakePresenceRepo{
		entries:   make(map[string]presence.Entry),
		overrides: make(map[string]presence.Override),
	}
	for _, e := range entries {
		r.entries[e.PersonID] = e
	}
	return r
}

func (r *fakePresenceRepo) setListErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listErr = err
}

func (r *fakePresenceRepo) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *fakePresenceRepo) entry(id string) (presence.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *fakePresenceRepo) List(context.Context) ([]presence.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicOnList {
		panic("presence store exploded")
	}
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]presence.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b presence.Entry) int {
		if a.PersonID < b.PersonID {
			return -1
		}
		if a.PersonID > b.PersonID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *fakePresenceRepo) ListOverrides(context.Context) ([]presence.Override, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]presence.Override, 0, len(r.overrides))
	for _, o := range r.overrides {
		out = append(out, o)
	}
	return out, nil
}

func (r *fakePresenceRepo) Apply(_ context.Context, b presence.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return r.applyErr
	}
	r.applies++
	for _, e := range b.Upserts {
		r.entries[e.PersonID] = e
	}
	for _, id := range b.Deletes {
		delete(r.entries, id)
	}
	for _, id := range b.ClearOverrides {
		delete(r.overrides, id)
	}
	return nil
}

func (r *fakePresenceRepo) Checkout(_ context.Context, personID, day string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicOnCheckout {
		panic("driver exploded")
	}
	if r.checkoutErr != nil {
		return false, r.checkoutErr
	}
	e, ok := r.entries[personID]
	if !ok {
		return false, nil
	}
	delete(r.entries, personID)
	r.overrides[personID] = presence.Override{PersonID: personID, Day: day, MovementCount: e.MovementCount, CheckedOutAt: now}
	return true, nil
}

type fakeDirectory struct {
	mu      sync.Mutex
	names   map[string]string
	calls   [][]string
	err     error
	maxIDs  int
	panicOn string
}

func (d *fakeDirectory) FindByPersonIDs(_ context.Context, ids []string) ([]directory.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, slices.Clone(ids))
	if d.panicOn != "" && slices.Contains(ids, d.panicOn) {
		panic("directory driver exploded")
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.maxIDs > 0 && len(ids) > d.maxIDs {
		return nil, errors.New("too many values in IN filter")
	}
	var out []directory.Identity
	for _, id := range ids {
		if name, ok := d.names[id]; ok {
			out = append(out, directory.Identity{PersonID: id, DisplayName: name})
		}
	}
	return out, nil
}

type fakeVisitorRepo struct {
	mu        sync.Mutex
	visitors  map[string]visitor.Visitor
	deleteErr error
	listErr   error
}

func newFakeVisitorRepo(vs ...visitor.Visitor) *fakeVisitorRepo {
	r := &fakeVisitorRepo{visitors: make(map[string]visitor.Visitor)}
	for _, v := range vs {
		r.visitors[v.ID] = v
	}
	return r
}

func (r *fakeVisitorRepo) Create(_ context.Context, v visitor.Visitor) (visitor.Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visitors[v.ID] = v
	return v, nil
}

func (r *fakeVisitorRepo) ListSince(_ context.Context, since time.Time) ([]visitor.Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []visitor.Visitor
	for _, v := range r.visitors {
		if !v.EnteredAt.Before(since) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b visitor.Visitor) int { return a.EnteredAt.Compare(b.EnteredAt) })
	return out, nil
}

func (r *fakeVisitorRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	_, ok := r.visitors[id]
	delete(r.visitors, id)
	return ok, nil
}

type fakeWatcher struct {
	mu       sync.Mutex
	signals  chan struct{}
	err      error
	channels []string
	released int
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{signals: make(chan struct{}, 1)}
}

func (w *fakeWatcher) Watch(_ context.Context, channel string) (<-chan struct{}, func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return nil, nil, w.err
	}
	w.channels = append(w.channels, channel)
	return w.signals, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.released++
	}, nil
}

func (w *fakeWatcher) releasedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}

type recordingObserver struct {
	mu        sync.Mutex
	passes    []presence.ReconcileResult
	errs      []error
	checkouts []presence.Outcome
}

func (o *recordingObserver) ObservePass(r presence.ReconcileResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.passes = append(o.passes, r)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) ObserveCheckout(out presence.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checkouts = append(o.checkouts, out)
}
