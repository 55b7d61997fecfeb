package lounge

import (
	"context"
	"fmt"

	"github.com/xraph/lounge/scheduler"
	"github.com/xraph/lounge/transport"
)

// mediaBatch accumulates the items of one media group while its window is
// open. It lives as the payload of a named one-shot scheduler task and is
// only touched under the task's payload lock.
type mediaBatch struct {
	senderID int64
	content  Content
}

// SubmitMedia relays one item of a media group. Items sharing a groupID
// from the same sender are collected into a single album: the first item
// opens a window (MediaBatchWindow) and registers a one-shot flush task;
// further items append to its payload. Hitting MediaBatchSize flushes
// immediately and later items reuse the window for a fresh batch.
//
// The first item's text, reply target and flags apply to the whole album.
func (l *Lounge) SubmitMedia(ctx context.Context, senderID int64, groupID string, item transport.MediaItem, content Content) error {
	if groupID == "" {
		// Not part of a group: relay as a single-item submission.
		content.Media = []transport.MediaItem{item}
		_, err := l.Submit(ctx, senderID, content)
		return err
	}

	name := fmt.Sprintf("media-batch:%d:%s", senderID, groupID)

	if t := l.sched.ByName(name); t != nil {
		l.appendToBatch(t, senderID, item, content)
		return nil
	}

	content.Media = []transport.MediaItem{item}
	_, err := l.sched.Register(func(payload any) {
		l.flushBatch(payload)
	}, scheduler.Options{
		Name:          name,
		FirstRunDelay: l.config.MediaBatchWindow,
		Payload:       &mediaBatch{senderID: senderID, content: content},
	})
	if err != nil {
		// Lost a race with a concurrent first item; append instead.
		if t := l.sched.ByName(name); t != nil {
			l.appendToBatch(t, senderID, item, content)
			return nil
		}
		return fmt.Errorf("lounge: open media batch: %w", err)
	}
	return nil
}

// appendToBatch adds an item to an open batch, flushing early when the
// batch reaches the configured cap. A batch already consumed by an early
// flush is reopened for the remainder; the flush task's timer fire then
// finds whatever accumulated since.
func (l *Lounge) appendToBatch(t *scheduler.Task, senderID int64, item transport.MediaItem, content Content) {
	var full *mediaBatch
	t.MutatePayload(func(p any) any {
		b, ok := p.(*mediaBatch)
		if !ok || b == nil {
			content.Media = []transport.MediaItem{item}
			return &mediaBatch{senderID: senderID, content: content}
		}
		b.content.Media = append(b.content.Media, item)
		if len(b.content.Media) >= l.config.MediaBatchSize {
			full = b
			return nil
		}
		return b
	})
	if full != nil {
		l.flushBatch(full)
	}
}

// flushBatch submits an accumulated batch. Called from the scheduler loop
// on window expiry and inline on a count-based flush; a nil payload means
// an early flush already consumed the batch.
func (l *Lounge) flushBatch(payload any) {
	b, ok := payload.(*mediaBatch)
	if !ok || b == nil || len(b.content.Media) == 0 {
		return
	}
	ctx := context.Background()
	if _, err := l.Submit(ctx, b.senderID, b.content); err != nil {
		if d, isDenial := AsDenial(err); isDenial {
			l.notify(ctx, b.senderID, d.Notice)
			return
		}
		l.logger.ErrorContext(ctx, "media batch submission failed",
			"sender", b.senderID,
			"items", len(b.content.Media),
			"error", err,
		)
	}
}
