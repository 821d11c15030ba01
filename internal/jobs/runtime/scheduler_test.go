package runtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"

	"github.com/woedy/ProxyHome/internal/config"
	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/domain"
	"github.com/woedy/ProxyHome/internal/security"
)

type stubRunner struct {
	enqueuedTypes []string
	enqueuedVal   []bool
	revalidations int
	job           domain.FetchJob
	err           error
}

func (s *stubRunner) EnqueueFetchJob(_ context.Context, jobType string, validate bool) (domain.FetchJob, error) {
	s.enqueuedTypes = append(s.enqueuedTypes, jobType)
	s.enqueuedVal = append(s.enqueuedVal, validate)
	return s.job, s.err
}

func (s *stubRunner) RevalidateStaleProxies(context.Context) (int, error) {
	s.revalidations++
	return 0, s.err
}

func setupRuntimeTestDB(t *testing.T) {
	t.Helper()

	t.Setenv("PROXY_ENCRYPTION_KEY", "runtime-test-key")
	security.ResetProxyCipherForTests()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1&_busy_timeout=5000", t.Name())
	if _, err := database.SetupDB(func(cfg *database.Config) { cfg.Dialector = sqlite.Open(dsn) }); err != nil {
		t.Fatalf("setup test database: %v", err)
	}

	t.Cleanup(func() {
		database.DB = nil
		security.ResetProxyCipherForTests()
	})
}

func schedulerSettings() config.Settings {
	return config.Settings{
		FetchPublicEvery: time.Hour,
		FetchBasicEvery:  2 * time.Hour,
		RevalidateEvery:  30 * time.Minute,
		RevalidateAfter:  time.Hour,
		RevalidateChunk:  50,
		RetentionAge:     7 * 24 * time.Hour,
		JobDeadline:      time.Hour,
	}
}

func testRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestSchedulerStartRegistersEntries(t *testing.T) {
	s := NewScheduler(schedulerSettings(), &stubRunner{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer s.Stop()

	if got := len(s.cron.Entries()); got != 5 {
		t.Fatalf("registered %d cron entries, want 5", got)
	}
}

func TestSchedulerSkipsDisabledSchedules(t *testing.T) {
	settings := schedulerSettings()
	settings.FetchPublicEvery = 0
	settings.FetchBasicEvery = 0
	s := NewScheduler(settings, &stubRunner{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer s.Stop()

	if got := len(s.cron.Entries()); got != 3 {
		t.Fatalf("registered %d cron entries, want 3 with the fetch schedules off", got)
	}
}

func TestFetchTickEnqueuesValidatedJob(t *testing.T) {
	stub := &stubRunner{job: domain.FetchJob{ID: 7}}
	s := NewScheduler(schedulerSettings(), stub, nil)

	tick := s.fetchTick(domain.JobTypePublic)
	if err := tick(context.Background()); err != nil {
		t.Fatalf("fetch tick: %v", err)
	}

	if len(stub.enqueuedTypes) != 1 || stub.enqueuedTypes[0] != domain.JobTypePublic {
		t.Fatalf("enqueued %v, want one public job", stub.enqueuedTypes)
	}
	if !stub.enqueuedVal[0] {
		t.Fatal("scheduled fetches must validate")
	}
}

func TestRevalidateTickDelegates(t *testing.T) {
	stub := &stubRunner{}
	s := NewScheduler(schedulerSettings(), stub, nil)

	if err := s.revalidateTick(context.Background()); err != nil {
		t.Fatalf("revalidate tick: %v", err)
	}
	if stub.revalidations != 1 {
		t.Fatalf("revalidations = %d, want 1", stub.revalidations)
	}
}

func TestRunTickHonoursLockAndContext(t *testing.T) {
	_, client := testRedisClient(t)
	s := NewScheduler(schedulerSettings(), nil, client)

	calls := 0
	work := func(context.Context) error {
		calls++
		return nil
	}

	ctx := context.Background()
	s.runTick(ctx, "revalidate", time.Minute, work)
	if calls != 1 {
		t.Fatalf("first tick ran %d times, want 1", calls)
	}

	s.runTick(ctx, "revalidate", time.Minute, work)
	if calls != 1 {
		t.Fatalf("tick ran although the lock is held; calls = %d", calls)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	s.runTick(cancelled, "retention", time.Minute, work)
	if calls != 1 {
		t.Fatalf("tick ran on a cancelled context; calls = %d", calls)
	}
}

func TestAcquireTickLockCoordinatesInstances(t *testing.T) {
	mr, client := testRedisClient(t)
	s := NewScheduler(schedulerSettings(), nil, client)
	ctx := context.Background()

	bare := NewScheduler(schedulerSettings(), nil, nil)
	if !bare.acquireTickLock(ctx, "revalidate", time.Minute) {
		t.Fatal("without redis every tick must run")
	}

	if !s.acquireTickLock(ctx, "revalidate", time.Minute) {
		t.Fatal("first claim should win the lock")
	}
	if s.acquireTickLock(ctx, "revalidate", time.Minute) {
		t.Fatal("second claim should lose while the lock lives")
	}
	if !s.acquireTickLock(ctx, "retention", time.Minute) {
		t.Fatal("other tick names lock independently")
	}

	mr.FastForward(2 * time.Minute)

	if !s.acquireTickLock(ctx, "revalidate", time.Minute) {
		t.Fatal("claim should win again after the lock expires")
	}
}

func TestAcquireTickLockFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })
	s := NewScheduler(schedulerSettings(), nil, client)

	if !s.acquireTickLock(context.Background(), "revalidate", time.Minute) {
		t.Fatal("a redis error must not block the tick")
	}
}

func TestAbandonedTickFailsStuckJobs(t *testing.T) {
	setupRuntimeTestDB(t)

	stuck, err := database.CreateFetchJob(domain.JobTypePublic, true, 10*time.Second, 30)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := database.MarkJobRunning(stuck.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	staleStart := time.Now().UTC().Add(-3 * time.Hour)
	if err := database.DB.Model(&domain.FetchJob{}).Where("id = ?", stuck.ID).Update("started_at", staleStart).Error; err != nil {
		t.Fatalf("age job: %v", err)
	}

	fresh, err := database.CreateFetchJob(domain.JobTypeBasic, true, 8*time.Second, 40)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := database.MarkJobRunning(fresh.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}

	s := NewScheduler(schedulerSettings(), &stubRunner{}, nil)
	if err := s.abandonedTick(context.Background()); err != nil {
		t.Fatalf("abandoned tick: %v", err)
	}

	swept, err := database.GetFetchJob(stuck.ID)
	if err != nil {
		t.Fatalf("reload stuck job: %v", err)
	}
	if swept.Status != domain.JobStatusFailed {
		t.Fatalf("stuck job status = %q, want failed", swept.Status)
	}
	if swept.Error == "" {
		t.Fatal("swept job should carry a failure cause")
	}

	untouched, err := database.GetFetchJob(fresh.ID)
	if err != nil {
		t.Fatalf("reload fresh job: %v", err)
	}
	if untouched.Status != domain.JobStatusRunning {
		t.Fatalf("fresh job status = %q, want running", untouched.Status)
	}
}

func TestRetentionTickDeletesOldDeadProxies(t *testing.T) {
	setupRuntimeTestDB(t)

	now := time.Now().UTC()
	seed := []domain.Proxy{
		{Address: "10.9.9.1", Port: 80, ProtocolID: domain.ProtocolHTTPID, Tier: domain.TierPublic},
		{Address: "10.9.9.2", Port: 80, ProtocolID: domain.ProtocolHTTPID, Tier: domain.TierPublic, IsWorking: true, LastChecked: &now},
		{Address: "10.9.9.3", Port: 80, ProtocolID: domain.ProtocolHTTPID, Tier: domain.TierPublic},
	}
	if err := database.DB.Create(&seed).Error; err != nil {
		t.Fatalf("seed proxies: %v", err)
	}
	old := now.Add(-8 * 24 * time.Hour)
	for _, address := range []string{"10.9.9.1", "10.9.9.2"} {
		if err := database.DB.Model(&domain.Proxy{}).Where("address = ?", address).Update("created_at", old).Error; err != nil {
			t.Fatalf("age proxy %s: %v", address, err)
		}
	}

	audits := []domain.ProxyTest{
		{Endpoint: "10.9.9.1:80", Success: false},
		{Endpoint: "10.9.9.2:80", Success: true},
	}
	if err := database.RecordProxyTests(audits); err != nil {
		t.Fatalf("seed audits: %v", err)
	}
	if err := database.DB.Model(&domain.ProxyTest{}).Where("endpoint = ?", "10.9.9.1:80").Update("created_at", old).Error; err != nil {
		t.Fatalf("age audit: %v", err)
	}

	s := NewScheduler(schedulerSettings(), &stubRunner{}, nil)
	if err := s.retentionTick(context.Background()); err != nil {
		t.Fatalf("retention tick: %v", err)
	}

	var remaining []domain.Proxy
	if err := database.DB.Order("address ASC").Find(&remaining).Error; err != nil {
		t.Fatalf("list proxies: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("retention left %d proxies, want 2", len(remaining))
	}
	if remaining[0].Address != "10.9.9.2" || remaining[1].Address != "10.9.9.3" {
		t.Fatalf("retention kept %s and %s, want the working and the recent one", remaining[0].Address, remaining[1].Address)
	}

	var keptAudits []domain.ProxyTest
	if err := database.DB.Find(&keptAudits).Error; err != nil {
		t.Fatalf("list audits: %v", err)
	}
	if len(keptAudits) != 1 || keptAudits[0].Endpoint != "10.9.9.2:80" {
		t.Fatalf("retention kept %d audits, want only the recent one", len(keptAudits))
	}
}
