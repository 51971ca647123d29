package alerts

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	Firing   = "firing"
	Resolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	RoundID    string     `json:"round_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHTTPClient replaces the client used for slack, teams and http targets.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithDiscord replaces the discord webhook executor.
func WithDiscord(d DiscordExecutor) Option {
	return func(e *Engine) { e.discord = d }
}

// Engine evaluates alert rules against finished rounds and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	client   *http.Client
	discord  DiscordExecutor
	now      func() time.Time

	mu       sync.Mutex
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // for cooldown
	history  []*Alert             // recently resolved alerts

	wg sync.WaitGroup // in-flight deliveries
}

// New creates an Engine from the alert configuration.
// An Engine with no rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig, opts ...Option) *Engine {
	e := &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.discord == nil {
		e.discord = newDiscordSession()
	}
	return e
}

// Evaluate tests all configured rules against r.
// Alerts that fire are stored and webhook delivery starts in the background.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(r *predictor.Round) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range e.rules {
		fires, value := evalCondition(rule.Condition, r)

		e.mu.Lock()
		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			last, seen := e.lastFire[rule.Name]
			if seen && now.Sub(last) <= cooldown {
				e.mu.Unlock()
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:       fmt.Sprintf("%s:%d", rule.Name, now.UnixNano()),
				RuleName: rule.Name,
				RoundID:  r.ID,
				Severity: sev,
				Value:    value,
				Message:  message(sev, rule, r, value),
				FiredAt:  now,
				State:    Firing,
			}
			e.active[rule.Name] = a
			e.lastFire[rule.Name] = now
			alertCopy := *a
			e.mu.Unlock()

			zap.L().Warn("alert fired",
				zap.String("rule", rule.Name),
				zap.String("round", r.ID),
				zap.Float64("value", value),
				zap.String("severity", sev))
			e.deliverAsync(&alertCopy)
			continue
		}

		a, ok := e.active[rule.Name]
		if !ok {
			e.mu.Unlock()
			continue
		}
		resolved := now
		a.State = Resolved
		a.ResolvedAt = &resolved
		delete(e.active, rule.Name)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		alertCopy := *a
		e.mu.Unlock()

		zap.L().Info("alert resolved", zap.String("rule", rule.Name), zap.String("round", r.ID))
		e.deliverAsync(&alertCopy)
	}
}

func message(sev string, rule config.AlertRule, r *predictor.Round, value float64) string {
	ens := r.Boxes[predictor.SlotEnsemble]
	return fmt.Sprintf("[%s] %s fired on round %s: %s (value %.0f, pick %s at %d%%)",
		sev, rule.Name, r.ID, rule.Condition, value, ens.Label, ens.Display)
}

func (e *Engine) deliverAsync(a *Alert) {
	if len(e.webhooks) == 0 {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(a)
	}()
}

// Wait blocks until every in-flight webhook delivery has finished.
func (e *Engine) Wait() { e.wg.Wait() }

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}
