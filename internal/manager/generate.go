package manager

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	passReply   = "reply"
	passGuiding = "guiding"
)

// errAbandoned stops a runtime that keeps emitting tokens after its caller
// has given up on it.
var errAbandoned = errors.New("generation abandoned")

// lease is one request's hold on the session. When a generation call is
// abandoned, the lease stays held until the runtime call has returned and,
// after a timeout, until the session has been reset. The next queued request
// therefore always finds an idle, usable session.
type lease struct {
	release func()
	wait    <-chan struct{}
	reset   string
}

func (m *Manager) endLease(l *lease) {
	if l.wait == nil && l.reset == "" {
		l.release()
		return
	}
	go func() {
		if l.wait != nil {
			<-l.wait
		}
		if l.reset != "" {
			m.resetSession(l.reset)
		}
		l.release()
	}()
}

type genOutcome struct {
	res FinalResult
	err error
}

// generate runs one completion against the session within the timeout
// budget. It returns as soon as the budget is exhausted, even if the runtime
// has not yet noticed; the lease then keeps the session until it has.
func (m *Manager) generate(ctx context.Context, l *lease, pass, promptText string, params InferParams, onToken func(string) error) (FinalResult, error) {
	gctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		abandoned bool
		content   strings.Builder
		tokens    int
	)
	sink := func(tok string) error {
		mu.Lock()
		defer mu.Unlock()
		if abandoned {
			return errAbandoned
		}
		content.WriteString(tok)
		tokens++
		if onToken != nil {
			return onToken(tok)
		}
		return nil
	}

	done := make(chan genOutcome, 1)
	finished := make(chan struct{})
	sess := m.session
	start := time.Now()
	go func() {
		defer close(finished)
		res, err := sess.Generate(gctx, promptText, params, sink)
		done <- genOutcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		generationSeconds.WithLabelValues(pass).Observe(time.Since(start).Seconds())
		if err := ctx.Err(); err != nil {
			generationsTotal.WithLabelValues(pass, "canceled").Inc()
			return FinalResult{}, err
		}
		if o.err != nil {
			if errors.Is(gctx.Err(), context.DeadlineExceeded) {
				generationsTotal.WithLabelValues(pass, "timeout").Inc()
				l.reset = pass
				return FinalResult{}, &TimeoutError{Pass: pass, Budget: m.timeout}
			}
			generationsTotal.WithLabelValues(pass, "error").Inc()
			return FinalResult{}, &GenerationError{Pass: pass, Err: o.err}
		}
		res := o.res
		mu.Lock()
		if res.Content == "" {
			res.Content = content.String()
		}
		if res.Usage.CompletionTokens == 0 {
			res.Usage.CompletionTokens = tokens
		}
		mu.Unlock()
		if res.Usage.TotalTokens == 0 {
			res.Usage.TotalTokens = res.Usage.PromptTokens + res.Usage.CompletionTokens
		}
		if strings.TrimSpace(res.Content) == "" {
			generationsTotal.WithLabelValues(pass, "empty").Inc()
			return FinalResult{}, &GenerationError{Pass: pass, Err: ErrEmptyOutput}
		}
		generationsTotal.WithLabelValues(pass, "ok").Inc()
		return res, nil

	case <-gctx.Done():
		mu.Lock()
		abandoned = true
		mu.Unlock()
		generationSeconds.WithLabelValues(pass).Observe(time.Since(start).Seconds())
		l.wait = finished
		if err := ctx.Err(); err != nil {
			generationsTotal.WithLabelValues(pass, "canceled").Inc()
			return FinalResult{}, err
		}
		generationsTotal.WithLabelValues(pass, "timeout").Inc()
		l.reset = pass
		m.log.Warn().Str("pass", pass).Dur("budget", m.timeout).Msg("generation timed out")
		return FinalResult{}, &TimeoutError{Pass: pass, Budget: m.timeout}
	}
}
