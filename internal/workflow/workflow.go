// Package workflow runs the per-recording migration pipeline: fetch, unpack,
// probe, transform, publish, record.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/curtbushko/drive-to-gong/internal/archive"
	"github.com/curtbushko/drive-to-gong/internal/filename"
	"github.com/curtbushko/drive-to-gong/internal/gong"
	"github.com/curtbushko/drive-to-gong/internal/identity"
	"github.com/curtbushko/drive-to-gong/internal/ledger"
	"github.com/curtbushko/drive-to-gong/internal/logging"
	"github.com/curtbushko/drive-to-gong/internal/manifest"
	"github.com/curtbushko/drive-to-gong/internal/media"
)

// Disposition classifies the outcome of processing one recording
type Disposition int

const (
	// Completed means the call was created and its media accepted
	Completed Disposition = iota
	// Skipped means the recording is not worth uploading (too short or unreadable)
	Skipped
	// Failed means a terminal failure was recorded in the error ledger
	Failed
	// Retry means a transient failure; the item should be requeued
	Retry
)

func (d Disposition) String() string {
	switch d {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Retry:
		return "retry"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of processing one recording
type Result struct {
	Disposition  Disposition
	CallID       string
	MediaURL     string
	Participants []string
	Reason       string
	Err          error
}

// SourceStore is the subset of the file store the workflow needs
type SourceStore interface {
	Download(ctx context.Context, fileID, destPath string) error
}

// CallPlatform is the subset of the call platform API the workflow needs
type CallPlatform interface {
	CreateCall(ctx context.Context, req gong.CreateCallRequest) (string, error)
	UploadMedia(ctx context.Context, callID, mediaPath string) (string, error)
}

// Ledgers groups the outcome ledgers the workflow appends to
type Ledgers struct {
	Completed *ledger.CompletedLedger
	Short     *ledger.ShortLedger
	Errors    *ledger.ErrorLedger
}

// Options configures a Processor
type Options struct {
	WorkDir            string
	MinDurationSeconds float64
}

// Processor runs the migration pipeline for individual recordings
type Processor struct {
	store      SourceStore
	platform   CallPlatform
	prober     media.Prober
	identities identity.Resolver
	ledgers    Ledgers
	sanitizer  filename.Sanitizer
	logger     logging.Logger
	opts       Options
}

// NewProcessor creates a new Processor
func NewProcessor(store SourceStore, platform CallPlatform, prober media.Prober, identities identity.Resolver, ledgers Ledgers, logger logging.Logger, opts Options) *Processor {
	return &Processor{
		store:      store,
		platform:   platform,
		prober:     prober,
		identities: identities,
		ledgers:    ledgers,
		sanitizer:  filename.NewSanitizer(filename.SanitizerOptions{}),
		logger:     logger,
		opts:       opts,
	}
}

// Run processes a single recording from fetch through ledger write. It never
// panics the caller's goroutine on transient failures; the Result's
// Disposition says what to do next.
func (p *Processor) Run(ctx context.Context, item manifest.Item) Result {
	dest := item.Destination
	if dest == "" {
		dest = filepath.Join(p.opts.WorkDir, p.sanitizer.BundleFileName(item.Title))
	}

	// A partial download from an interrupted run must not be unpacked.
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return Result{Disposition: Retry, Err: fmt.Errorf("failed to clear stale bundle: %w", err)}
	}

	p.logger.DebugWithContext(ctx, "downloading bundle %s to %s", item.ID, dest)
	if err := p.store.Download(ctx, item.ID, dest); err != nil {
		return Result{Disposition: Retry, Err: fmt.Errorf("download failed: %w", err)}
	}

	ws, err := archive.Unpack(dest)
	if err != nil {
		if errors.Is(err, archive.ErrBundleContents) {
			return p.skip(ctx, item, "bundle contents invalid")
		}
		return Result{Disposition: Retry, Err: fmt.Errorf("unpack failed: %w", err)}
	}
	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			p.logger.WarnWithContext(ctx, "workspace cleanup failed for %s: %v", item.ID, cleanupErr)
		}
	}()

	info, err := p.prober.Probe(ctx, ws.MediaPath)
	if err != nil {
		if errors.Is(err, media.ErrInvalidMedia) {
			return p.skip(ctx, item, "no video stream")
		}
		return Result{Disposition: Retry, Err: fmt.Errorf("probe failed: %w", err)}
	}

	if info.DurationSeconds < p.opts.MinDurationSeconds {
		return p.skip(ctx, item, fmt.Sprintf("duration %.1fs below minimum", info.DurationSeconds))
	}

	meeting, err := media.LoadMeetingInfo(ws.InfoPath)
	if err != nil {
		return Result{Disposition: Retry, Err: err}
	}

	actualStart, err := media.GongStartTime(meeting.StartTime)
	if err != nil {
		return Result{Disposition: Retry, Err: err}
	}

	parties, primaryUser := p.identities.BuildParties(meeting.ParticipantNames)
	gongParties := make([]gong.Party, 0, len(parties))
	for _, party := range parties {
		gongParties = append(gongParties, gong.Party{Name: party.Name, UserID: party.UserID})
	}

	title := meeting.MeetingTitle
	if len(meeting.ParticipantNames) > 0 {
		title = fmt.Sprintf("%s - %s", meeting.MeetingTitle, strings.Join(meeting.ParticipantNames, ", "))
	}

	callReq := gong.CreateCallRequest{
		ClientUniqueID: fmt.Sprintf("%s-%d-reupload", item.ID, item.Attempt),
		Title:          title,
		ActualStart:    actualStart,
		Parties:        gongParties,
		PrimaryUser:    primaryUser,
		Direction:      "Inbound",
	}

	callID, err := p.platform.CreateCall(ctx, callReq)
	if err != nil {
		return Result{Disposition: Retry, Err: fmt.Errorf("create call failed: %w", err)}
	}
	p.logger.InfoWithContext(ctx, "created call %s for %s", callID, item.ID)

	mediaURL, err := p.platform.UploadMedia(ctx, callID, ws.MediaPath)
	if err != nil {
		if errors.Is(err, gong.ErrAlreadyUploaded) {
			return p.fail(ctx, item, ledger.ReasonAlreadyUploaded)
		}
		return Result{Disposition: Retry, Err: fmt.Errorf("media upload failed: %w", err)}
	}

	record := ledger.CompletedRecord{
		ID:               item.ID,
		Title:            item.Title,
		CallID:           callID,
		URL:              mediaURL,
		ParticipantNames: meeting.ParticipantNames,
	}
	if err := p.ledgers.Completed.Append(record); err != nil {
		// The call exists; a rerun will land in the error ledger as a
		// duplicate instead of uploading twice.
		return Result{Disposition: Retry, Err: fmt.Errorf("failed to record completion: %w", err)}
	}

	p.logger.InfoWithContext(ctx, "completed %s: call %s at %s", item.ID, callID, mediaURL)
	return Result{
		Disposition:  Completed,
		CallID:       callID,
		MediaURL:     mediaURL,
		Participants: meeting.ParticipantNames,
	}
}

func (p *Processor) skip(ctx context.Context, item manifest.Item, why string) Result {
	p.logger.InfoWithContext(ctx, "skipping %s: %s", item.ID, why)
	if err := p.ledgers.Short.Append(ledger.SkippedRecord{ID: item.ID, Title: item.Title}); err != nil {
		return Result{Disposition: Retry, Err: fmt.Errorf("failed to record skip: %w", err)}
	}
	return Result{Disposition: Skipped, Reason: why}
}

func (p *Processor) fail(ctx context.Context, item manifest.Item, reason string) Result {
	p.logger.WarnWithContext(ctx, "recording %s failed: %s", item.ID, reason)
	if err := p.ledgers.Errors.Append(ledger.FailedRecord{ID: item.ID, Title: item.Title, Reason: reason}); err != nil {
		return Result{Disposition: Retry, Err: fmt.Errorf("failed to record failure: %w", err)}
	}
	return Result{Disposition: Failed, Reason: reason}
}
