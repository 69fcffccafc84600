package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// --- Mock implementations for service testing ---

// Ensure mocks implement their interfaces.
var (
	_ driven.RemoteAPI      = (*fakeRemote)(nil)
	_ driving.HealthMonitor = (*fakeHealth)(nil)
)

type trashCall struct {
	ids    []int64
	action domain.TrashAction
}

type uploadCall struct {
	uris []string
	meta domain.UploadMetadata
}

// fakeRemote is an in-memory server holding records per collection.
type fakeRemote struct {
	mu      sync.Mutex
	records map[domain.Collection]map[int64]json.RawMessage
	nextID  int64

	listCalls map[domain.Collection]int
	listErr   map[domain.Collection]error
	listHook  func(collection domain.Collection, page int)

	createErr  error
	updateErr  error
	updateErrs map[int64]error
	deleteErr  error
	trashErr   error
	probeErr   error
	uploadErr  error
	uploadFn   func(uris []string) (*domain.UploadResult, error)

	creates    int
	updates    int
	deletes    []int64
	trashCalls []trashCall
	uploads    []uploadCall
	probes     int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records:   make(map[domain.Collection]map[int64]json.RawMessage),
		nextID:    1000,
		listCalls: make(map[domain.Collection]int),
		listErr:   make(map[domain.Collection]error),
	}
}

// put stores a record as the server would return it.
func (f *fakeRemote) put(collection domain.Collection, id int64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[collection] == nil {
		f.records[collection] = make(map[int64]json.RawMessage)
	}
	f.records[collection][id] = recordPayload(collection, id, name)
}

func (f *fakeRemote) has(collection domain.Collection, id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[collection][id]
	return ok
}

func (f *fakeRemote) listCount(collection domain.Collection) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[collection]
}

func (f *fakeRemote) ListPage(
	_ context.Context, collection domain.Collection, page, pageSize int,
) (*domain.Page, error) {
	f.mu.Lock()
	f.listCalls[collection]++
	hook := f.listHook
	if err := f.listErr[collection]; err != nil {
		f.mu.Unlock()
		return nil, err
	}

	ids := make([]int64, 0, len(f.records[collection]))
	for id := range f.records[collection] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(ids))
	p := &domain.Page{Count: len(ids)}
	for _, id := range ids[min(start, len(ids)):end] {
		entity := recordEntity(collection, id, f.records[collection][id])
		p.Results = append(p.Results, entity)
	}
	if end < len(ids) {
		p.Next = fmt.Sprintf("/api/%s/?page=%d", collection, page+1)
	}
	f.mu.Unlock()

	if hook != nil {
		hook(collection, page)
	}
	return p, nil
}

func (f *fakeRemote) Create(
	_ context.Context, collection domain.Collection, data json.RawMessage,
) (*domain.CachedEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	f.nextID++
	body["id"] = f.nextID
	raw, _ := json.Marshal(body)
	if f.records[collection] == nil {
		f.records[collection] = make(map[int64]json.RawMessage)
	}
	f.records[collection][f.nextID] = raw
	entity := recordEntity(collection, f.nextID, raw)
	return &entity, nil
}

func (f *fakeRemote) Update(
	_ context.Context, collection domain.Collection, id int64, data json.RawMessage,
) (*domain.CachedEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if err := f.updateErrs[id]; err != nil {
		return nil, err
	}
	current, ok := f.records[collection][id]
	if !ok {
		return nil, &domain.APIError{StatusCode: http.StatusNotFound, Message: "Not found."}
	}
	merged, err := mergePayload(current, data)
	if err != nil {
		return nil, err
	}
	f.records[collection][id] = merged
	entity := recordEntity(collection, id, merged)
	return &entity, nil
}

func (f *fakeRemote) Delete(_ context.Context, collection domain.Collection, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.records[collection][id]; !ok {
		return &domain.APIError{StatusCode: http.StatusNotFound, Message: "Not found."}
	}
	delete(f.records[collection], id)
	return nil
}

func (f *fakeRemote) Upload(
	_ context.Context, uri string, meta domain.UploadMetadata, progress domain.ProgressFunc,
) (*domain.UploadResult, error) {
	return f.upload([]string{uri}, meta, progress)
}

func (f *fakeRemote) UploadMultiPage(
	_ context.Context, uris []string, meta domain.UploadMetadata, progress domain.ProgressFunc,
) (*domain.UploadResult, error) {
	return f.upload(uris, meta, progress)
}

func (f *fakeRemote) upload(
	uris []string, meta domain.UploadMetadata, progress domain.ProgressFunc,
) (*domain.UploadResult, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, uploadCall{uris: uris, meta: meta})
	fn, err := f.uploadFn, f.uploadErr
	f.mu.Unlock()

	if fn != nil {
		return fn(uris)
	}
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(10, 10)
	}
	return &domain.UploadResult{TaskID: "6f1a3b7e-8c1d-4e55-9a4f-0b9a1d5c2e11"}, nil
}

func (f *fakeRemote) TrashAction(_ context.Context, ids []int64, action domain.TrashAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ids) > 0 {
		f.trashCalls = append(f.trashCalls, trashCall{ids: ids, action: action})
	}
	return f.trashErr
}

func (f *fakeRemote) Probe(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.probeErr
}

func (f *fakeRemote) setProbeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErr = err
}

func (f *fakeRemote) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func recordPayload(collection domain.Collection, id int64, name string) json.RawMessage {
	field := "name"
	if collection == domain.CollectionDocuments {
		field = "title"
	}
	raw, _ := json.Marshal(map[string]any{"id": id, field: name})
	return raw
}

func recordEntity(collection domain.Collection, id int64, raw json.RawMessage) domain.CachedEntity {
	var head struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	_ = json.Unmarshal(raw, &head)
	name := head.Name
	if collection == domain.CollectionDocuments {
		name = head.Title
	}
	return domain.CachedEntity{
		Collection: collection,
		ID:         id,
		Name:       name,
		Payload:    append(json.RawMessage(nil), raw...),
	}
}

// fakeHealth is a HealthMonitor with a fixed answer.
type fakeHealth struct {
	mu        sync.Mutex
	status    domain.ServerStatus
	reachable bool
	checks    int
	onCheck   func() domain.ServerStatus
}

func newFakeHealth(reachable bool) *fakeHealth {
	status := domain.OfflineStatus(domain.ReasonUnknown)
	if reachable {
		status = domain.OnlineStatus(time.Now())
	}
	return &fakeHealth{status: status, reachable: reachable}
}

func (h *fakeHealth) CheckServerHealth(_ context.Context) domain.ServerStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks++
	if h.onCheck != nil {
		h.status = h.onCheck()
		h.reachable = h.status.IsOnline()
	}
	return h.status
}

func (h *fakeHealth) Status() domain.ServerStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *fakeHealth) IsReachable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reachable
}

func (h *fakeHealth) NextDelay() time.Duration { return time.Minute }
func (h *fakeHealth) SetForeground(_ bool) {}
func (h *fakeHealth) Start(_ context.Context) error { return nil }
func (h *fakeHealth) Stop() error { return nil }
func (h *fakeHealth) Subscribe(ctx context.Context) <-chan domain.ServerStatus {
	ch := make(chan domain.ServerStatus, 1)
	ch <- h.Status()
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
