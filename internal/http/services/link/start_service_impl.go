package link

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dayoff-kr/moimlink/internal/identity"
	"github.com/dayoff-kr/moimlink/internal/observability/logger"
)

// DefaultProviders is the provider set linkable out of the box.
var DefaultProviders = []string{"google", "facebook", "kakao", "twitter", "github", "naver", "line"}

// StartDeps contains dependencies for the start service.
type StartDeps struct {
	Gateway     identity.Gateway
	StateSigner StateSigner
	// Providers is the configured allow-list, lowercase.
	Providers   []string
	DefaultNext string
}

type startService struct {
	gateway     identity.Gateway
	stateSigner StateSigner
	providers   map[string]struct{}
	defaultNext string
}

// NewStartService creates a new StartService.
func NewStartService(d StartDeps) StartService {
	providers := d.Providers
	if len(providers) == 0 {
		providers = DefaultProviders
	}
	allowed := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		allowed[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	next := d.DefaultNext
	if next == "" {
		next = DefaultNext
	}
	return &startService{
		gateway:     d.Gateway,
		stateSigner: d.StateSigner,
		providers:   allowed,
		defaultNext: next,
	}
}

func (s *startService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("link.start"))

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if _, ok := s.providers[provider]; !ok {
		log.Warn("provider not allowed", logger.Provider(req.Provider))
		return nil, ErrStartProviderUnknown
	}

	next := SafeNext(req.Next, s.defaultNext)

	state, err := s.stateSigner.SignState(StateClaims{Provider: provider, Next: next})
	if err != nil {
		log.Error("state signing failed", logger.Provider(provider), logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrStartSigningFailed, err)
	}

	// The provider sends the user back here after consent, state intact.
	callback := strings.TrimRight(req.BaseURL, "/") + "/account/callback?" + url.Values{
		"next":     {next},
		"provider": {provider},
		"state":    {state},
	}.Encode()

	log.Info("link started", logger.Provider(provider))
	return &StartResult{RedirectURL: s.gateway.AuthorizeURL(provider, callback)}, nil
}
