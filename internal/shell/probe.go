package shell

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// probeContent reports whether the content URL can be loaded. Server errors
// count as unavailable; any other answer means the page will render.
func (s *Server) probeContent(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ContentURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := s.deps.ProbeClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", s.cfg.ContentURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s answered with status %d", s.cfg.ContentURL, resp.StatusCode)
	}
	return nil
}
