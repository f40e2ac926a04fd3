package fetcher

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ndjsonBufSize allows for large traceroute records; Atlas result lines can
// run to a few hundred kilobytes for long paths.
const ndjsonBufSize = 4 << 20

// StreamNDJSON reads newline-delimited JSON and sends each parsed object to
// a channel. Blank lines are skipped. Caller must consume the returned
// channel. Both channels are closed when processing completes.
func StreamNDJSON(ctx context.Context, r io.Reader) (<-chan map[string]any, <-chan error) {
	recCh := make(chan map[string]any, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), ndjsonBufSize)

		line := 0
		for scanner.Scan() {
			line++
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ndjson: context cancelled")
				return
			}

			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			var record map[string]any
			if err := json.Unmarshal([]byte(text), &record); err != nil {
				errCh <- eris.Wrapf(err, "ndjson: parse line %d", line)
				return
			}

			select {
			case recCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ndjson: context cancelled")
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- eris.Wrap(err, "ndjson: scan")
		}
	}()

	return recCh, errCh
}
