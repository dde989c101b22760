package provider

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/cache"
)

type batchCall struct {
	ids   []string
	reset bool
}

// fakeRemote is an in-process RemoteGateway with switchable failures
type fakeRemote struct {
	mu sync.Mutex

	doc       site.Document
	docErr    error
	inquiries []site.Inquiry
	inqErr    error

	// writeErr is returned by every write unless a more specific error is set
	writeErr   error
	replaceErr error
	uploadErr  error

	// getGate, when set, blocks GetDocument until closed
	getGate  chan struct{}
	getCalls atomic.Int32

	calls    []string
	uploads  [][]byte
	replaced []site.Document
	patched  []string
	batches  []batchCall
	upserted []site.Product
}

func newFakeRemote() *fakeRemote {
	doc := site.Skeleton()
	doc.Settings.Name = site.Text("en", "Remote Co", "zh", "远程公司")
	doc.Hero.Title = site.Text("en", "From the server")
	return &fakeRemote{doc: doc, inquiries: []site.Inquiry{}}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) GetDocument(ctx context.Context) (site.Document, error) {
	f.getCalls.Add(1)
	if f.getGate != nil {
		<-f.getGate
	}
	f.record("get_document")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docErr != nil {
		return site.Document{}, f.docErr
	}
	return f.doc.Clone(), nil
}

func (f *fakeRemote) ReplaceDocument(ctx context.Context, doc site.Document) error {
	f.record("replace_document")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.replaced = append(f.replaced, doc)
	return nil
}

func (f *fakeRemote) PatchSection(ctx context.Context, section string, value any) (json.RawMessage, error) {
	f.record("patch_section")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.patched = append(f.patched, section)
	return json.Marshal(value)
}

func (f *fakeRemote) UploadDocument(ctx context.Context, filename string, raw []byte) error {
	f.record("upload_document")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.uploads = append(f.uploads, raw)
	return nil
}

func (f *fakeRemote) UpsertProduct(ctx context.Context, p site.Product) (site.Product, error) {
	f.record("upsert_product")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return site.Product{}, f.writeErr
	}
	f.upserted = append(f.upserted, p)
	return p, nil
}

func (f *fakeRemote) DeleteProduct(ctx context.Context, id string) error {
	f.record("delete_product")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeErr
}

func (f *fakeRemote) BatchUpsertProducts(ctx context.Context, products []site.Product, reset bool) (sitedata.BatchResult, error) {
	f.record("batch_products")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return sitedata.BatchResult{}, f.writeErr
	}
	ids := site.ProductIDs(products)
	f.batches = append(f.batches, batchCall{ids: ids, reset: reset})
	return sitedata.BatchResult{Upserted: len(ids), IDs: ids}, nil
}

func (f *fakeRemote) ListInquiries(ctx context.Context) ([]site.Inquiry, error) {
	f.record("list_inquiries")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inqErr != nil {
		return nil, f.inqErr
	}
	return site.CloneInquiries(f.inquiries), nil
}

func (f *fakeRemote) CreateInquiry(ctx context.Context, in site.InquiryInput) (site.Inquiry, error) {
	f.record("create_inquiry")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return site.Inquiry{}, f.writeErr
	}
	inq, err := site.NewInquiry(in, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		return site.Inquiry{}, shared.ErrValidation.WithCause(err)
	}
	inq.ID = "server-" + in.Name
	return inq, nil
}

func (f *fakeRemote) UpdateInquiryStatus(ctx context.Context, id string, status site.InquiryStatus) (site.Inquiry, error) {
	f.record("update_inquiry_status")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return site.Inquiry{}, f.writeErr
	}
	return site.Inquiry{ID: id, Status: status}, nil
}

var _ RemoteGateway = (*fakeRemote)(nil)

// testDefaults is a small non-empty bundled document
func testDefaults() site.Document {
	doc := site.Skeleton()
	doc.Settings.Name = site.Text("en", "Bundled Co")
	doc.Hero.Title = site.Text("en", "Bundled hero")
	return doc
}

type fixture struct {
	provider *Provider
	remote   *fakeRemote
	store    *cache.MemoryStore
	cache    *cache.Cache
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	remote := newFakeRemote()
	store := cache.NewMemoryStore()
	c := cache.New(store)
	opts = append([]Option{WithClock(func() time.Time {
		return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	})}, opts...)
	p := New(remote, c, testDefaults, zaptest.NewLogger(t), opts...)
	return &fixture{provider: p, remote: remote, store: store, cache: c}
}

func testProduct(id string) site.Product {
	return site.Product{
		ID:          id,
		Name:        site.Text("en", "Product "+id),
		Images:      []string{"/img/" + id + ".jpg"},
		StockStatus: site.StockStatusInStock,
	}
}
