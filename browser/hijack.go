package browser

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/pagefetch/filter"
)

// installFilter intercepts every request of page and aborts those the
// filter rejects. The returned router is already running; the caller
// stops it when the page's context closes.
func installFilter(page *rod.Page, f *filter.Filter, logger *slog.Logger) (*rod.HijackRouter, error) {
	router := page.HijackRequests()

	// Pattern "*" + empty resource type = intercept ALL requests. Only the
	// URL decides.
	err := router.Add("*", "", func(h *rod.Hijack) {
		u := h.Request.URL().String()
		if rule, blocked := f.Decide(u); blocked {
			logger.Debug("request blocked", "rule", rule, "url", u)
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		_ = router.Stop()
		return nil, err
	}

	// router.Run() blocks until Stop.
	go router.Run()
	return router, nil
}

// handleProxyAuth answers proxy authentication challenges on page with
// the given credentials. Origin-server challenges get the default
// browser behaviour. Must run after installFilter: it re-enables the
// Fetch domain with the same catch-all pattern plus auth handling.
func handleProxyAuth(page *rod.Page, username, password string) error {
	err := proto.FetchEnable{
		Patterns:           []*proto.FetchRequestPattern{{URLPattern: "*"}},
		HandleAuthRequests: true,
	}.Call(page)
	if err != nil {
		return err
	}

	go page.EachEvent(func(e *proto.FetchAuthRequired) {
		resp := &proto.FetchAuthChallengeResponse{
			Response: proto.FetchAuthChallengeResponseResponseDefault,
		}
		if e.AuthChallenge != nil && e.AuthChallenge.Source == proto.FetchAuthChallengeSourceProxy {
			resp = &proto.FetchAuthChallengeResponse{
				Response: proto.FetchAuthChallengeResponseResponseProvideCredentials,
				Username: username,
				Password: password,
			}
		}
		_ = proto.FetchContinueWithAuth{RequestID: e.RequestID, AuthChallengeResponse: resp}.Call(page)
	})()
	return nil
}
