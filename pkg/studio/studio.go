package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/igolaizola/zhiyin/pkg/credit"
	"github.com/igolaizola/zhiyin/pkg/history"
	"github.com/igolaizola/zhiyin/pkg/metrics"
	"github.com/igolaizola/zhiyin/pkg/song"
	"github.com/igolaizola/zhiyin/pkg/transport"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// CostPerGeneration is the number of credits a generation consumes.
const CostPerGeneration = 1

// ErrInsufficientBalance is returned when the balance cannot cover a generation.
var ErrInsufficientBalance = errors.New("studio: insufficient balance")

type Config struct {
	Ledger    *credit.Ledger
	Transport transport.Transport
	History   *history.History
	Logger    *zap.Logger

	// Now and NewID default to the wall clock and ULIDs.
	Now   func() time.Time
	NewID func() string
}

// Studio coordinates credit gating, the remote generation and the session
// history. Only one generation runs at a time.
type Studio struct {
	ledger    *credit.Ledger
	transport transport.Transport
	history   *history.History
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	busy      atomic.Bool
}

func New(cfg *Config) *Studio {
	h := cfg.History
	if h == nil {
		h = history.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &Studio{
		ledger:    cfg.Ledger,
		transport: cfg.Transport,
		history:   h,
		logger:    logger,
		now:       now,
		newID:     newID,
	}
}

// Generate runs one generation for the hint. An empty hint or a call made
// while another generation is in flight is ignored and returns nil, nil.
// The credit debited up front is returned if the generation fails.
func (s *Studio) Generate(ctx context.Context, hint string) (result *song.Result, err error) {
	if strings.TrimSpace(hint) == "" {
		metrics.RecordGeneration(metrics.OutcomeIgnored)
		return nil, nil
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Debug("studio: generation already in flight, ignoring")
		metrics.RecordGeneration(metrics.OutcomeIgnored)
		return nil, nil
	}
	defer s.busy.Store(false)

	if !s.ledger.HasSufficientBalance(CostPerGeneration) {
		metrics.RecordGeneration(metrics.OutcomeInsufficient)
		return nil, ErrInsufficientBalance
	}
	if err := s.ledger.Debit(ctx, CostPerGeneration); err != nil {
		if errors.Is(err, credit.ErrInsufficient) {
			metrics.RecordGeneration(metrics.OutcomeInsufficient)
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("studio: couldn't debit credits: %w", err)
	}

	var committed bool
	defer func() {
		if committed {
			return
		}
		metrics.RecordGeneration(metrics.OutcomeFailure)
		if r := recover(); r != nil {
			err = fmt.Errorf("studio: generation panicked: %v", r)
		}
		if rerr := s.ledger.Credit(context.WithoutCancel(ctx), CostPerGeneration); rerr != nil {
			s.logger.Error("studio: couldn't refund credits", zap.Error(rerr))
			err = errors.Join(err, rerr)
			return
		}
		s.logger.Info("studio: generation failed, credits refunded", zap.Error(err), zap.Int("balance", s.ledger.Balance()))
	}()

	payload, err := s.transport.Generate(ctx, hint)
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't generate: %w", err)
	}
	result = song.Normalize(payload, s.newID(), s.now())
	s.history.Prepend(result)
	committed = true
	metrics.RecordGeneration(metrics.OutcomeSuccess)

	s.logger.Debug("studio: generated", zap.String("id", result.ID), zap.String("title", result.Title))
	return result, nil
}

// Refine removes the result from the history and returns the request text
// used to iterate over one of its variants.
func (s *Studio) Refine(id string, typ song.VariantType) (string, error) {
	r, err := s.history.Get(id)
	if err != nil {
		return "", err
	}
	v, ok := r.Variant(typ)
	if !ok {
		return "", fmt.Errorf("studio: result %s has no variant %q", id, typ)
	}
	s.history.Remove(id)
	return song.RefineTemplate(v), nil
}

// TopUp adds credits after a purchase was verified by hand.
func (s *Studio) TopUp(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("studio: invalid top up amount %d", n)
	}
	if err := s.ledger.Credit(ctx, n); err != nil {
		return fmt.Errorf("studio: couldn't top up: %w", err)
	}
	return nil
}

func (s *Studio) Balance() int {
	return s.ledger.Balance()
}

func (s *Studio) Busy() bool {
	return s.busy.Load()
}

func (s *Studio) History() *history.History {
	return s.history
}

func (s *Studio) ClearHistory() {
	s.history.Clear()
}

// Message returns the text shown to the user for a generation error.
func Message(err error) string {
	if errors.Is(err, ErrInsufficientBalance) {
		return "剩余次数不足，请充值后继续创作"
	}
	reason := "网络或服务异常"
	var serr *transport.StatusError
	switch {
	case errors.As(err, &serr):
		reason = serr.Error()
	case err != nil:
		reason = err.Error()
	}
	return fmt.Sprintf("生成遇到问题: %s", reason)
}
