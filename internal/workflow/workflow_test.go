package workflow

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/curtbushko/drive-to-gong/internal/gong"
	"github.com/curtbushko/drive-to-gong/internal/identity"
	"github.com/curtbushko/drive-to-gong/internal/ledger"
	"github.com/curtbushko/drive-to-gong/internal/logging"
	"github.com/curtbushko/drive-to-gong/internal/manifest"
	"github.com/curtbushko/drive-to-gong/internal/media"
)

// fakeStore writes a zip bundle with the configured entries on Download
type fakeStore struct {
	entries map[string]string
	err     error
	calls   int
}

func (s *fakeStore) Download(ctx context.Context, fileID, destPath string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range s.entries {
		entry, err := w.Create(name)
		if err != nil {
			return err
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			return err
		}
	}
	return w.Close()
}

type fakePlatform struct {
	createCalls   int
	uploadCalls   int
	lastRequest   gong.CreateCallRequest
	createErr     error
	uploadErr     error
	callID        string
	mediaURL      string
}

func (p *fakePlatform) CreateCall(ctx context.Context, req gong.CreateCallRequest) (string, error) {
	p.createCalls++
	p.lastRequest = req
	if p.createErr != nil {
		return "", p.createErr
	}
	return p.callID, nil
}

func (p *fakePlatform) UploadMedia(ctx context.Context, callID, mediaPath string) (string, error) {
	p.uploadCalls++
	if p.uploadErr != nil {
		return "", p.uploadErr
	}
	return p.mediaURL, nil
}

type fakeProber struct {
	duration float64
	err      error
	calls    int
}

func (p *fakeProber) Probe(ctx context.Context, path string) (*media.VideoInfo, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &media.VideoInfo{DurationSeconds: p.duration, FrameRate: 30}, nil
}

func writeUserList(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "user_list.csv")
	data := "id,first_name,last_name,email,active,telephonyEnabled\n" +
		"u-1,Ada,Lovelace,ada@example.com,true,true\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write user list: %v", err)
	}
	return path
}

type fixture struct {
	processor *Processor
	store     *fakeStore
	platform  *fakePlatform
	prober    *fakeProber
	dataDir   string
}

func newFixture(t *testing.T, store *fakeStore, platform *fakePlatform, prober *fakeProber) *fixture {
	t.Helper()

	dataDir := t.TempDir()
	completed, err := ledger.NewCompletedLedger(filepath.Join(dataDir, "completed_list.csv"))
	if err != nil {
		t.Fatalf("failed to create completed ledger: %v", err)
	}
	short, err := ledger.NewShortLedger(filepath.Join(dataDir, "short_video_list.csv"))
	if err != nil {
		t.Fatalf("failed to create short ledger: %v", err)
	}
	errors, err := ledger.NewErrorLedger(filepath.Join(dataDir, "error_video_list.csv"))
	if err != nil {
		t.Fatalf("failed to create error ledger: %v", err)
	}

	identities, err := identity.NewManager(identity.Config{
		FilePath:        writeUserList(t, dataDir),
		DefaultUserID:   "u-default",
		DefaultUserName: "Migration Bot",
	})
	if err != nil {
		t.Fatalf("failed to create identity manager: %v", err)
	}
	t.Cleanup(func() { identities.Close() })

	processor := NewProcessor(store, platform, prober, identities,
		Ledgers{Completed: completed, Short: short, Errors: errors},
		logging.NewDiscardLogger(),
		Options{WorkDir: t.TempDir(), MinDurationSeconds: 60})

	return &fixture{processor: processor, store: store, platform: platform, prober: prober, dataDir: dataDir}
}

func validEntries() map[string]string {
	return map[string]string{
		"recording.mp4": "mp4 bytes",
		"meeting.json":  `{"MeetingTitle":"Weekly Sync","ParticpantNames":["Ada Lovelace","Guest Speaker"],"StartTime":"2026-03-01 10:00:00"}`,
	}
}

func TestRunCompleted(t *testing.T) {
	fx := newFixture(t,
		&fakeStore{entries: validEntries()},
		&fakePlatform{callID: "call-1", mediaURL: "https://app.gong.io/call?id=call-1"},
		&fakeProber{duration: 125})

	result := fx.processor.Run(context.Background(), manifest.Item{ID: "file-1", Title: "Weekly Sync.zip"})
	if result.Disposition != Completed {
		t.Fatalf("disposition = %s, err = %v", result.Disposition, result.Err)
	}
	if result.CallID != "call-1" {
		t.Errorf("callID = %q", result.CallID)
	}

	req := fx.platform.lastRequest
	if req.ClientUniqueID != "file-1-0-reupload" {
		t.Errorf("clientUniqueId = %q, want file-1-0-reupload", req.ClientUniqueID)
	}
	if req.Title != "Weekly Sync - Ada Lovelace, Guest Speaker" {
		t.Errorf("title = %q", req.Title)
	}
	if req.ActualStart != "2026-03-01T10:00:00Z" {
		t.Errorf("actualStart = %q", req.ActualStart)
	}
	if req.Direction != "Inbound" {
		t.Errorf("direction = %q", req.Direction)
	}
	if req.PrimaryUser != "u-1" {
		t.Errorf("primaryUser = %q, want u-1 (first resolved participant)", req.PrimaryUser)
	}
	if len(req.Parties) != 2 {
		t.Fatalf("parties = %+v", req.Parties)
	}
	if req.Parties[0].UserID != "u-1" {
		t.Errorf("resolved party = %+v", req.Parties[0])
	}
	if req.Parties[1].UserID != "" {
		t.Errorf("unresolved guest must carry no user ID: %+v", req.Parties[1])
	}

	ids, err := ledger.LoadIDs(filepath.Join(fx.dataDir, "completed_list.csv"))
	if err != nil {
		t.Fatalf("failed to load completed ledger: %v", err)
	}
	if _, ok := ids["file-1"]; !ok {
		t.Error("completed ledger missing file-1")
	}
}

func TestRunRetryAttemptInUniqueID(t *testing.T) {
	fx := newFixture(t,
		&fakeStore{entries: validEntries()},
		&fakePlatform{callID: "call-1", mediaURL: "u"},
		&fakeProber{duration: 125})

	result := fx.processor.Run(context.Background(), manifest.Item{ID: "file-9", Title: "t.zip", Attempt: 2})
	if result.Disposition != Completed {
		t.Fatalf("disposition = %s, err = %v", result.Disposition, result.Err)
	}
	if got := fx.platform.lastRequest.ClientUniqueID; got != "file-9-2-reupload" {
		t.Errorf("clientUniqueId = %q, want file-9-2-reupload", got)
	}
}

func TestRunSkipsShortVideo(t *testing.T) {
	fx := newFixture(t,
		&fakeStore{entries: validEntries()},
		&fakePlatform{},
		&fakeProber{duration: 59.9})

	result := fx.processor.Run(context.Background(), manifest.Item{ID: "file-2", Title: "Short.zip"})
	if result.Disposition != Skipped {
		t.Fatalf("disposition = %s, err = %v", result.Disposition, result.Err)
	}
	if fx.platform.createCalls != 0 || fx.platform.uploadCalls != 0 {
		t.Error("short video must not reach the call platform")
	}

	ids, err := ledger.LoadIDs(filepath.Join(fx.dataDir, "short_video_list.csv"))
	if err != nil {
		t.Fatalf("failed to load short ledger: %v", err)
	}
	if _, ok := ids["file-2"]; !ok {
		t.Error("short ledger missing file-2")
	}
}

func TestRunExactMinimumDurationProceeds(t *testing.T) {
	fx := newFixture(t,
		&fakeStore{entries: validEntries()},
		&fakePlatform{callID: "call-3", mediaURL: "u"},
		&fakeProber{duration: 60.0})

	result := fx.processor.Run(context.Background(), manifest.Item{ID: "file-3", Title: "Edge.zip"})
	if result.Disposition != Completed {
		t.Fatalf("disposition = %s, err = %v (60.0s is not below the minimum)", result.Disposition, result.Err)
	}
}

func TestRunSkipsInvalidVideo(t *testing.T) {
	fx := newFixture(t,
		&fakeStore{entries: validEntries()},
		&fakePlatform{},
		&fakeProber{err: media.ErrInvalidMedia})

	result := fx.processor.Run(context.Background(), manifest.Item{ID: "file-4", Title: "Broken.zip"})
	if result.Disposition != Skipped {
		t.Fatalf("disposition = %s, err = %v", result.Disposition, result.Err)
	}
}

func TestRunSkipsBadBundle(t *testing.T) {
	fx := newFixture(t,
		&fakeStore{entries: map[string]string{"recording.mp4": "x"}}, // no metadata
		&fakePlatform{},
		&fakeProber{duration: 125})

	result := fx.processor.Run(context.Background(), manifest.Item{ID: "file-5", Title: "NoMeta.zip"})
	if result.Disposition != Skipped {
		t.Fatalf("disposition = %s, err = %v", result.Disposition, result.Err)
	}
	if fx.prober.calls != 0 {
		t.Error("invalid bundle must not be probed")
	}
}

func TestRunDuplicateUploadIsTerminal(t *testing.T) {
	fx := newFixture(t,
		&fakeStore{entries: validEntries()},
		&fakePlatform{callID: "call-6", uploadErr: gong.ErrAlreadyUploaded},
		&fakeProber{duration: 125})

	result := fx.processor.Run(context.Background(), manifest.Item{ID: "file-6", Title: "Dup.zip"})
	if result.Disposition != Failed {
		t.Fatalf("disposition = %s, err = %v", result.Disposition, result.Err)
	}
	if result.Reason != ledger.ReasonAlreadyUploaded {
		t.Errorf("reason = %q, want %q", result.Reason, ledger.ReasonAlreadyUploaded)
	}
	if fx.platform.uploadCalls != 1 {
		t.Errorf("uploadCalls = %d, duplicates must not be retried", fx.platform.uploadCalls)
	}

	ids, err := ledger.LoadIDs(filepath.Join(fx.dataDir, "error_video_list.csv"))
	if err != nil {
		t.Fatalf("failed to load error ledger: %v", err)
	}
	if _, ok := ids["file-6"]; !ok {
		t.Error("error ledger missing file-6")
	}
}

func TestRunTransientFailuresRetry(t *testing.T) {
	tests := []struct {
		name     string
		store    *fakeStore
		platform *fakePlatform
		prober   *fakeProber
	}{
		{
			name:     "download error",
			store:    &fakeStore{err: fmt.Errorf("connection reset")},
			platform: &fakePlatform{},
			prober:   &fakeProber{duration: 125},
		},
		{
			name:     "probe execution error",
			store:    &fakeStore{entries: validEntries()},
			platform: &fakePlatform{},
			prober:   &fakeProber{err: fmt.Errorf("ffprobe not found")},
		},
		{
			name:     "create call HTTP error",
			store:    &fakeStore{entries: validEntries()},
			platform: &fakePlatform{createErr: &gong.HTTPError{StatusCode: 502, Body: "bad gateway"}},
			prober:   &fakeProber{duration: 125},
		},
		{
			name:     "upload HTTP error",
			store:    &fakeStore{entries: validEntries()},
			platform: &fakePlatform{callID: "c", uploadErr: &gong.HTTPError{StatusCode: 500, Body: "oops"}},
			prober:   &fakeProber{duration: 125},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.store, tt.platform, tt.prober)
			result := fx.processor.Run(context.Background(), manifest.Item{ID: "file-7", Title: "Flaky.zip"})
			if result.Disposition != Retry {
				t.Fatalf("disposition = %s, want retry (err = %v)", result.Disposition, result.Err)
			}
			if result.Err == nil {
				t.Error("retry result must carry the underlying error")
			}
		})
	}
}
