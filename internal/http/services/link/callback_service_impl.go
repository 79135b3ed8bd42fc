package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dayoff-kr/moimlink/internal/identity"
	"github.com/dayoff-kr/moimlink/internal/metrics"
	"github.com/dayoff-kr/moimlink/internal/observability/logger"
	"github.com/dayoff-kr/moimlink/internal/session"
	"github.com/dayoff-kr/moimlink/internal/store/core"
	"go.uber.org/zap"
)

// CallbackDeps contains dependencies for the callback service.
type CallbackDeps struct {
	Gateway     identity.Gateway
	Sessions    session.Store
	Repo        core.Repository
	StateSigner StateSigner // optional; state stays a hint carrier
}

type callbackService struct {
	gateway     identity.Gateway
	sessions    session.Store
	repo        core.Repository
	stateSigner StateSigner
}

// NewCallbackService creates a new CallbackService.
func NewCallbackService(d CallbackDeps) CallbackService {
	return &callbackService{
		gateway:     d.Gateway,
		sessions:    d.Sessions,
		repo:        d.Repo,
		stateSigner: d.StateSigner,
	}
}

func (s *callbackService) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("link.callback"))

	providerHint := req.ProviderHint
	if req.State != "" && s.stateSigner != nil {
		claims, err := s.stateSigner.ParseState(req.State)
		if err != nil {
			// State only carries display hints; a bad one is logged, not
			// fatal. The exchange below is the sole source of identity.
			log.Warn("state validation failed", logger.Err(err))
		} else if claims.Provider != "" {
			providerHint = claims.Provider
		}
	}

	if req.Session.Valid(time.Now()) {
		return s.linkPath(ctx, log, req, providerHint)
	}
	return s.signInPath(ctx, log, req, providerHint)
}

// exchange redeems the code through gw and times it. Every failure counts as
// an exchange failure and an error outcome.
func (s *callbackService) exchange(ctx context.Context, gw identity.Gateway, code, providerHint string) (*identity.Assertion, error) {
	start := time.Now()
	a, err := gw.ExchangeCode(ctx, code)
	metrics.ExchangeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExchangeFailures.Inc()
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), metricProvider(providerHint)).Inc()
		return nil, fmt.Errorf("%w: %v", ErrCallbackExchangeFailed, err)
	}
	return a, nil
}

// signInPath resolves the asserted identity to an application user and binds
// a fresh session. It never writes a linked_account row.
func (s *callbackService) signInPath(ctx context.Context, log *zap.Logger, req CallbackRequest, providerHint string) (*CallbackResult, error) {
	a, err := s.exchange(ctx, s.gateway, req.Code, providerHint)
	if err != nil {
		log.Warn("sign-in exchange failed", logger.Provider(providerHint), logger.Err(err))
		return nil, err
	}
	if a.Provider == "" || a.Subject == "" {
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), metricProvider(providerHint)).Inc()
		log.Warn("sign-in assertion incomplete", logger.Provider(providerHint))
		return nil, ErrCallbackIncompleteAssertion
	}

	user, err := s.resolveUser(ctx, a)
	if err != nil {
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), a.Provider).Inc()
		log.Error("sign-in user resolution failed", logger.Provider(a.Provider), logger.Err(err))
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), a.Provider).Inc()
		log.Error("session creation failed", logger.UserID(user.ID), logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrCallbackSessionFailed, err)
	}

	metrics.CallbackOutcomes.WithLabelValues(string(OutcomeSignedIn), a.Provider).Inc()
	log.Info("sign-in completed",
		logger.Provider(a.Provider),
		logger.Subject(a.Subject),
		logger.UserID(user.ID),
		logger.Email(a.Email),
		logger.Outcome(string(OutcomeSignedIn)),
	)
	return &CallbackResult{Outcome: OutcomeSignedIn, Provider: a.Provider, Session: sess}, nil
}

// resolveUser maps an assertion to an app user: existing link by subject,
// else user by email, else a freshly provisioned user.
func (s *callbackService) resolveUser(ctx context.Context, a *identity.Assertion) (*core.User, error) {
	if ln, err := s.repo.FindLinkBySubject(ctx, a.Provider, a.Subject); err == nil {
		u, err := s.repo.GetUser(ctx, ln.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCallbackRepository, err)
		}
		return u, nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrCallbackRepository, err)
	}

	if a.Email == "" {
		return nil, ErrCallbackIncompleteAssertion
	}

	u, err := s.repo.GetUserByEmail(ctx, a.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrCallbackRepository, err)
	}

	u, err = s.repo.CreateUser(ctx, core.CreateUserInput{
		Email:    a.Email,
		Username: a.Name,
		Avatar:   a.AvatarURL,
	})
	if errors.Is(err, core.ErrConflict) {
		// Concurrent first sign-in for the same email.
		u, err = s.repo.GetUserByEmail(ctx, a.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackRepository, err)
	}
	return u, nil
}

// linkPath attaches the asserted identity to the current user. The exchange
// runs through an isolated gateway and its tokens are discarded; the caller's
// session is never touched.
func (s *callbackService) linkPath(ctx context.Context, log *zap.Logger, req CallbackRequest, providerHint string) (*CallbackResult, error) {
	me := req.Session.UserID
	log = log.With(logger.UserID(me))

	a, err := s.exchange(ctx, s.gateway.Isolated(), req.Code, providerHint)
	if err != nil {
		log.Warn("link exchange failed", logger.Provider(providerHint), logger.Err(err))
		return nil, err
	}
	if a.Provider == "" || a.Subject == "" {
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), metricProvider(providerHint)).Inc()
		log.Warn("link assertion incomplete", logger.Provider(providerHint))
		return nil, ErrCallbackIncompleteAssertion
	}
	log = log.With(logger.Provider(a.Provider), logger.Subject(a.Subject))

	// Claimed-by-other takes precedence over already-linked, so the subject
	// owner is checked before anything else.
	existing, err := s.repo.FindLinkBySubject(ctx, a.Provider, a.Subject)
	switch {
	case err == nil && existing.UserID != me:
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), a.Provider).Inc()
		log.Warn("identity already claimed", logger.Outcome(string(OutcomeError)))
		return nil, ErrCallbackIdentityClaimed
	case err == nil:
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeAlreadyLinked), a.Provider).Inc()
		log.Info("link already present", logger.LinkID(existing.ID), logger.Outcome(string(OutcomeAlreadyLinked)))
		return &CallbackResult{Outcome: OutcomeAlreadyLinked, Provider: a.Provider}, nil
	case !errors.Is(err, core.ErrNotFound):
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), a.Provider).Inc()
		log.Error("subject lookup failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrCallbackRepository, err)
	}

	created, err := s.repo.CreateLink(ctx, core.CreateLinkInput{
		UserID:   me,
		Provider: a.Provider,
		Subject:  a.Subject,
		Email:    optional(a.Email),
		Username: optional(a.Name),
		Avatar:   optional(a.AvatarURL),
	})
	if errors.Is(err, core.ErrConflict) {
		// Another request won the insert race. Whose row it is decides the
		// outcome.
		if row, ferr := s.repo.FindLinkBySubject(ctx, a.Provider, a.Subject); ferr == nil && row.UserID == me {
			metrics.CallbackOutcomes.WithLabelValues(string(OutcomeAlreadyLinked), a.Provider).Inc()
			log.Info("link raced with duplicate submit", logger.LinkID(row.ID), logger.Outcome(string(OutcomeAlreadyLinked)))
			return &CallbackResult{Outcome: OutcomeAlreadyLinked, Provider: a.Provider}, nil
		}
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), a.Provider).Inc()
		log.Warn("identity claimed concurrently", logger.Outcome(string(OutcomeError)))
		return nil, ErrCallbackIdentityClaimed
	}
	if err != nil {
		metrics.CallbackOutcomes.WithLabelValues(string(OutcomeError), a.Provider).Inc()
		log.Error("link insert failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrCallbackRepository, err)
	}

	metrics.CallbackOutcomes.WithLabelValues(string(OutcomeLinked), a.Provider).Inc()
	log.Info("link created", logger.LinkID(created.ID), logger.Outcome(string(OutcomeLinked)))
	return &CallbackResult{Outcome: OutcomeLinked, Provider: a.Provider}, nil
}

func metricProvider(hint string) string {
	if hint == "" {
		return "unknown"
	}
	return hint
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
