package transmit

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/telemetry-agent/pkg/logger"
	"github.com/telemetry-agent/pkg/report"
)

// StatusError 目标端返回非 2xx 状态码
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("destination status: %s", e.Status)
}

// HTTP 以 JSON POST 方式发送报告，可选 gzip 压缩请求体；不重试
type HTTP struct {
	hc   *http.Client
	gzip bool
}

// NewHTTP hc 为空时使用 10s 超时的默认客户端
func NewHTTP(hc *http.Client, gzip bool) *HTTP {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{hc: hc, gzip: gzip}
}

// Transmit 将 doc 发送到 destination（http/https URL）
func (t *HTTP) Transmit(ctx context.Context, destination string, doc report.Document) (retErr error) {
	u, err := parseDestination(destination)
	if err != nil {
		return err
	}
	logger.Debug("sending metrics",
		zap.String("base_uri", u.Scheme+"://"+u.Host),
		zap.String("resource", u.RequestURI()))

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if t.gzip {
		if body, err = gzipBytes(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := t.hc.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close response body: %w", cerr)
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

func parseDestination(destination string) (*url.URL, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("empty destination")
	}
	u, err := url.Parse(destination)
	if err != nil {
		return nil, fmt.Errorf("parse destination %q: %w", destination, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported destination scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("destination %q has no host", destination)
	}
	return u, nil
}

func gzipBytes(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
