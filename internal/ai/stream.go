package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arin/livedit/internal/status"
)

// Stream sends req to /api/generate with stream enabled and forwards
// every decoded response fragment to onChunk.
//
// Status sequence on success is Thinking, Applying, Done, with the
// configured pacing delay between Applying and Done. Cancellation of ctx
// at any point yields Cancelled and a nil error. Transport failures,
// truncated bodies and in-band server errors yield Error and a nil error.
// A non-2xx response yields Error and a *RequestFailedError.
func (c *Client) Stream(ctx context.Context, req GenerationRequest, onChunk ChunkFunc, onStatus StatusFunc) error {
	if onChunk == nil {
		onChunk = func(string) {}
	}
	if onStatus == nil {
		onStatus = func(status.Status) {}
	}
	log := c.log.WithField("model", req.Model)

	onStatus(status.Thinking)
	if ctx.Err() != nil {
		onStatus(status.Cancelled)
		return nil
	}

	resp, err := c.post(ctx, c.streamClient, req, true)
	if err != nil {
		if ctx.Err() != nil {
			onStatus(status.Cancelled)
			return nil
		}
		log.WithError(err).Warn("generation transport error")
		onStatus(status.Error)
		return nil
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, req.Model); err != nil {
		log.WithError(err).Warn("generation request rejected")
		onStatus(status.Error)
		return err
	}

	c.consume(ctx, resp.Body, onChunk, onStatus, log)
	return nil
}

// consume reads newline-delimited JSON from body until the server
// signals completion, the body ends, or ctx is cancelled.
func (c *Client) consume(ctx context.Context, body io.Reader, onChunk ChunkFunc, onStatus StatusFunc, log *logrus.Entry) {
	r := bufio.NewReader(body)
	lineNo, malformed := 0, 0

	for {
		line, readErr := r.ReadBytes('\n')

		// Nothing is dispatched once cancellation is observed, even if
		// the read returned buffered bytes.
		if ctx.Err() != nil {
			onStatus(status.Cancelled)
			return
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			lineNo++
			var frag StreamFragment
			if err := json.Unmarshal(line, &frag); err != nil {
				malformed++
				log.WithFields(logrus.Fields{"line": lineNo, "consecutive": malformed}).
					WithError(err).Warn("skipping malformed stream fragment")
				if c.maxDecodeFailures > 0 && malformed > c.maxDecodeFailures {
					log.WithError(ErrTooManyMalformed).Error("abandoning stream")
					onStatus(status.Error)
					return
				}
			} else {
				malformed = 0
				if frag.Error != "" {
					log.WithField("error", frag.Error).Error("server reported generation error")
					onStatus(status.Error)
					return
				}
				if frag.Response != "" {
					onChunk(frag.Response)
				}
				if frag.Done {
					c.finish(ctx, onStatus)
					return
				}
			}
		}

		if readErr != nil {
			if ctx.Err() != nil {
				onStatus(status.Cancelled)
				return
			}
			if errors.Is(readErr, io.EOF) {
				readErr = ErrTruncated
			}
			log.WithError(readErr).Warn("generation stream failed")
			onStatus(status.Error)
			return
		}
	}
}

// finish reports Applying, holds for the pacing delay, then reports Done.
func (c *Client) finish(ctx context.Context, onStatus StatusFunc) {
	onStatus(status.Applying)
	if c.pacingDelay > 0 {
		t := time.NewTimer(c.pacingDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			onStatus(status.Cancelled)
			return
		case <-t.C:
		}
	}
	onStatus(status.Done)
}
