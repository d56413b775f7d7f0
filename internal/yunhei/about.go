package yunhei

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/rshade/ysyunhei/internal/redact"
	"github.com/rshade/ysyunhei/internal/version"
)

// SiteStatus is the outcome of probing the blacklist site.
type SiteStatus struct {
	OK     bool
	Status int
	// Error is the sanitized transport failure when no status was received.
	Error string
}

// Line renders the status for the about card.
func (st SiteStatus) Line() string {
	if st.OK {
		return "云黑服务：✅ 正常 (HTTP 200)"
	}
	detail := st.Error
	if st.Status != 0 {
		detail = "HTTP " + strconv.Itoa(st.Status)
	}
	if detail == "" {
		detail = redact.UnknownError
	}
	return "云黑服务：❌ 异常 (" + detail + ")"
}

// About returns the plugin card: name, version, contributors and site status.
func (s *Service) About(ctx context.Context) string {
	contributors := "（无）"
	if len(version.Contributors) > 0 {
		contributors = strings.Join(version.Contributors, "、")
	}

	return strings.Join([]string{
		"Ysy cloud blacklist plugin for OICQ",
		"版本：" + version.Display(),
		"贡献者：" + contributors,
		s.ProbeSite(ctx).Line(),
	}, "\n")
}

// ProbeSite sends HEAD to the site, falling back to GET when HEAD is not
// allowed or yields no status.
func (s *Service) ProbeSite(ctx context.Context) SiteStatus {
	status, err := s.probeStatus(ctx, http.MethodHead)
	if err == nil && (status == http.StatusMethodNotAllowed || status == 0) {
		status, err = s.probeStatus(ctx, http.MethodGet)
	}
	if err != nil {
		s.logger(ctx).Debug().Err(err).Str("url", s.opts.SiteURL).Msg("site probe failed")
		return SiteStatus{Error: s.san.Error(err)}
	}
	return SiteStatus{OK: status >= 200 && status < 300, Status: status}
}

func (s *Service) probeStatus(ctx context.Context, method string) (int, error) {
	resp, err := s.probe.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Execute(method, s.opts.SiteURL)
	if err != nil {
		return 0, err
	}
	if body := resp.RawBody(); body != nil {
		_ = body.Close()
	}
	return resp.StatusCode(), nil
}
