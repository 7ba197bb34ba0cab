package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/cache"
	"github.com/bobmcallan/mgnrega-portal/internal/client"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

type fakeSource struct {
	districts    []models.District
	districtsErr error
	report       *models.Report
	reportErr    error
	calls        atomic.Int32
	release      chan struct{}
}

func (f *fakeSource) Districts(ctx context.Context) ([]models.District, error) {
	return f.districts, f.districtsErr
}

func (f *fakeSource) Report(ctx context.Context, code, month string) (*models.Report, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	r := *f.report
	return &r, nil
}

func (f *fakeSource) Locate(ctx context.Context, lat, lon float64) (string, error) {
	return "pune", nil
}

type memSnapshots struct {
	mu    sync.Mutex
	items map[string]models.Report
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{items: make(map[string]models.Report)}
}

func (m *memSnapshots) SaveReport(_ context.Context, key string, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = *r
	return nil
}

func (m *memSnapshots) DeleteReport(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memSnapshots) ListForDistrict(_ context.Context, code string) ([]models.SnapshotInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SnapshotInfo
	for key, r := range m.items {
		if r.DistrictCode == code {
			out = append(out, models.SnapshotInfo{Key: key, DistrictCode: code, Month: r.Month})
		}
	}
	return out, nil
}

func (m *memSnapshots) LoadReport(_ context.Context, key string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return &r, nil
}

func TestNormalizeSummary(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1200families got work", "1200 families got work"},
		{"1,200families and 30families", "1,200 families and 30 families"},
		{"1200 families", "1200 families"},
		{"families", "families"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSummary(tt.in); got != tt.want {
			t.Errorf("NormalizeSummary(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestService_Districts_Fallback(t *testing.T) {
	src := &fakeSource{districtsErr: errors.New("connection refused")}
	svc := NewService(src, nil, nil, common.NewSilentLogger())

	list, fallback := svc.Districts(context.Background())
	if !fallback {
		t.Error("expected fallback to be reported")
	}
	if len(list) != 2 || list[0].Code != "nagpur" || list[1].Code != "pune" {
		t.Errorf("unexpected fallback list: %+v", list)
	}

	list[0].Name = "mutated"
	if FallbackDistricts[0].Name != "Nagpur" {
		t.Error("callers must not be able to mutate the fallback list")
	}
}

func TestService_Districts_FromSource(t *testing.T) {
	src := &fakeSource{districts: []models.District{{Code: "wardha", Name: "Wardha"}}}
	svc := NewService(src, nil, nil, common.NewSilentLogger())

	list, fallback := svc.Districts(context.Background())
	if fallback {
		t.Error("did not expect fallback")
	}
	if len(list) != 1 || list[0].Code != "wardha" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestService_Load_NormalizesAndCaches(t *testing.T) {
	src := &fakeSource{report: &models.Report{Summary: "1200families worked"}}
	c := cache.New[*models.Report](time.Minute, 10)
	svc := NewService(src, c, nil, common.NewSilentLogger())

	res := svc.Load(context.Background(), "pune", "")
	if res.State != StateLoaded {
		t.Fatalf("expected loaded, got %s (%v)", res.State, res.Err)
	}
	if res.Report.Summary != "1200 families worked" {
		t.Errorf("summary not normalized: %q", res.Report.Summary)
	}
	if res.Report.DistrictCode != "pune" || res.Report.DistrictName != "pune" {
		t.Errorf("expected district defaults, got %+v", res.Report)
	}

	res.Report.Summary = "mutated"
	again := svc.Load(context.Background(), "pune", "")
	if again.Report.Summary != "1200 families worked" {
		t.Error("cached report was mutated through a returned copy")
	}
	if src.calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", src.calls.Load())
	}
}

func TestService_Load_FailedWithoutSnapshot(t *testing.T) {
	src := &fakeSource{reportErr: errors.New("mgnrega api returned 500")}
	svc := NewService(src, nil, nil, common.NewSilentLogger())

	res := svc.Load(context.Background(), "pune", "")
	if res.State != StateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
	if res.Err == nil || res.Report != nil {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestService_Load_NotFoundIsWrapped(t *testing.T) {
	src := &fakeSource{reportErr: client.ErrDistrictNotFound}
	svc := NewService(src, nil, nil, common.NewSilentLogger())

	res := svc.Load(context.Background(), "atlantis", "")
	if !errors.Is(res.Err, client.ErrDistrictNotFound) {
		t.Errorf("expected ErrDistrictNotFound, got %v", res.Err)
	}
}

func TestService_Load_ServesStaleSnapshot(t *testing.T) {
	snaps := newMemSnapshots()
	src := &fakeSource{report: &models.Report{Summary: "fresh"}}
	svc := NewService(src, nil, snaps, common.NewSilentLogger())

	if res := svc.Load(context.Background(), "pune", "2025-09"); res.State != StateLoaded {
		t.Fatalf("first load failed: %v", res.Err)
	}

	src.reportErr = errors.New("timeout")
	res := svc.Load(context.Background(), "pune", "2025-09")
	if res.State != StateLoaded {
		t.Fatalf("expected stale snapshot to load, got %s (%v)", res.State, res.Err)
	}
	if !res.Report.Stale || res.Report.Summary != "fresh" {
		t.Errorf("expected stale fresh report, got %+v", res.Report)
	}
}

func TestService_Forget(t *testing.T) {
	snaps := newMemSnapshots()
	c := cache.New[*models.Report](time.Minute, 10)
	src := &fakeSource{report: &models.Report{Summary: "ok"}}
	svc := NewService(src, c, snaps, common.NewSilentLogger())
	ctx := context.Background()

	svc.Load(ctx, "pune", "")
	svc.Load(ctx, "pune", "2025-08")
	svc.Load(ctx, "nagpur", "")

	list, err := svc.Snapshots(ctx, "pune")
	if err != nil || len(list) != 2 {
		t.Fatalf("expected 2 pune snapshots, got %d (%v)", len(list), err)
	}

	removed, err := svc.Forget(ctx, "pune")
	if err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 snapshots removed, got %d", removed)
	}
	if list, _ := svc.Snapshots(ctx, "pune"); len(list) != 0 {
		t.Errorf("expected no pune snapshots left, got %d", len(list))
	}
	if list, _ := svc.Snapshots(ctx, "nagpur"); len(list) != 1 {
		t.Errorf("nagpur snapshot must survive, got %d", len(list))
	}
	if _, ok := c.Get(cache.MakeKey("pune", "")); ok {
		t.Error("expected pune cache entry to be invalidated")
	}
	if _, ok := c.Get(cache.MakeKey("nagpur", "")); !ok {
		t.Error("nagpur cache entry must survive")
	}

	before := src.calls.Load()
	svc.Load(ctx, "pune", "")
	if src.calls.Load() != before+1 {
		t.Error("expected a forgotten district to be fetched again")
	}
}

func TestService_Snapshots_WithoutStore(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, nil, common.NewSilentLogger())

	list, err := svc.Snapshots(context.Background(), "pune")
	if err != nil || list != nil {
		t.Errorf("expected empty list, got %v (%v)", list, err)
	}
	if n, err := svc.Forget(context.Background(), "pune"); n != 0 || err != nil {
		t.Errorf("expected no-op forget, got %d (%v)", n, err)
	}
}

func TestService_Load_SharesConcurrentFetch(t *testing.T) {
	src := &fakeSource{report: &models.Report{Summary: "ok"}, release: make(chan struct{})}
	svc := NewService(src, nil, nil, common.NewSilentLogger())

	var wg sync.WaitGroup
	results := make([]LoadResult, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Load(context.Background(), "pune", "")
		}(i)
	}

	// Let the goroutines join the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	for i, r := range results {
		if r.State != StateLoaded {
			t.Errorf("result %d: expected loaded, got %s", i, r.State)
		}
	}
	if n := src.calls.Load(); n < 1 || n > 5 {
		t.Errorf("unexpected upstream call count %d", n)
	}
}

func TestService_Load_CancelledCaller(t *testing.T) {
	src := &fakeSource{report: &models.Report{Summary: "late"}, release: make(chan struct{})}
	c := cache.New[*models.Report](time.Minute, 10)
	svc := NewService(src, c, nil, common.NewSilentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan LoadResult, 1)
	go func() { done <- svc.Load(ctx, "pune", "") }()

	cancel()
	res := <-done
	if res.State != StateFailed || !errors.Is(res.Err, context.Canceled) {
		t.Errorf("expected cancelled failure, got %s (%v)", res.State, res.Err)
	}
	if res.Report != nil {
		t.Error("cancelled load must not return a report")
	}
	close(src.release)
}

func TestService_Load_RequiresCode(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, nil, common.NewSilentLogger())
	if res := svc.Load(context.Background(), "", ""); res.State != StateFailed {
		t.Errorf("expected failed for empty code, got %s", res.State)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantErr  bool
	}{
		{"pune", 18.52, 73.85, false},
		{"bounds", 90, -180, false},
		{"lat too high", 90.1, 0, true},
		{"lon too low", 0, -180.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinates() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
		})
	}
}

func TestService_Locate_RejectsInvalid(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, nil, common.NewSilentLogger())
	if _, err := svc.Locate(context.Background(), 200, 0); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
	code, err := svc.Locate(context.Background(), 18.5, 73.8)
	if err != nil || code != "pune" {
		t.Errorf("Locate() = %q, %v", code, err)
	}
}

func TestLoadState_String(t *testing.T) {
	if StateLoading.String() != "loading" || StateLoaded.String() != "loaded" || StateFailed.String() != "failed" {
		t.Error("unexpected state names")
	}
}
