// Package usage polls an external usage-accounting command and turns its
// cumulative totals into rate samples.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"claudewatch/internal/types"
)

const commandTimeout = 30 * time.Second

var (
	// ErrNoCommand is returned when the poller has no command to run.
	ErrNoCommand = errors.New("usage: no command configured")
	// ErrNoUsage is returned when command output holds no recognizable totals.
	ErrNoUsage = errors.New("usage: no totals in command output")
)

var firstNumber = regexp.MustCompile(`\d[\d,]*`)

// =============================================================================
// SAMPLER
// =============================================================================

// Sampler turns cumulative totals into rates. It owns the previous sample;
// each poller has its own.
type Sampler struct {
	prev *types.UsageSample
}

// Observe records totals read at time at and returns the sample with rates
// computed against the previous observation. The first observation, and one
// whose totals went backwards (counter reset), has zero rates.
func (s *Sampler) Observe(totalTokens int64, totalCost float64, at time.Time) types.UsageSample {
	sample := types.UsageSample{
		TotalTokens: totalTokens,
		TotalCost:   totalCost,
		At:          at,
	}
	if prev := s.prev; prev != nil {
		elapsed := at.Sub(prev.At)
		if elapsed > 0 && totalTokens >= prev.TotalTokens && totalCost >= prev.TotalCost {
			sample.TokensPerMinute = float64(totalTokens-prev.TotalTokens) / elapsed.Minutes()
			sample.CostPerHour = (totalCost - prev.TotalCost) / elapsed.Hours()
		}
	}
	s.prev = &sample
	return sample
}

// Previous returns the last observed sample.
func (s *Sampler) Previous() (types.UsageSample, bool) {
	if s.prev == nil {
		return types.UsageSample{}, false
	}
	return *s.prev, true
}

// Reset forgets the previous sample.
func (s *Sampler) Reset() {
	s.prev = nil
}

// =============================================================================
// OUTPUT PARSING
// =============================================================================

// ParseOutput extracts cumulative token and cost totals from command output.
// JSON output may carry the totals at the top level or under "totals";
// otherwise the first integer in the output is taken as the token total.
func ParseOutput(output []byte) (int64, float64, error) {
	var doc map[string]any
	if err := json.Unmarshal(output, &doc); err == nil {
		if totals, ok := doc["totals"].(map[string]any); ok {
			doc = totals
		}
		tokens, okTokens := numberField(doc, "totalTokens", "total_tokens", "tokens")
		cost, okCost := numberField(doc, "totalCost", "total_cost", "totalCostUSD", "cost")
		if okTokens || okCost {
			return int64(tokens), cost, nil
		}
		return 0, 0, ErrNoUsage
	}

	match := firstNumber.Find(output)
	if match == nil {
		return 0, 0, ErrNoUsage
	}
	tokens, err := strconv.ParseInt(strings.ReplaceAll(string(match), ",", ""), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("usage: parse %q: %w", match, err)
	}
	return tokens, 0, nil
}

func numberField(doc map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := doc[key].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

// =============================================================================
// POLLER
// =============================================================================

// Runner executes a command line and returns its standard output.
type Runner func(ctx context.Context, command string) ([]byte, error)

// Poller runs the usage command on a fixed interval and emits samples.
type Poller struct {
	command  string
	interval time.Duration
	run      Runner
	sampler  Sampler
	emit     func(types.Envelope)
	now      func() time.Time
}

// NewPoller creates a poller. A nil runner executes the command directly.
func NewPoller(command string, interval time.Duration, emit func(types.Envelope), run Runner) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	if run == nil {
		run = execCommand
	}
	return &Poller{
		command:  command,
		interval: interval,
		run:      run,
		emit:     emit,
		now:      time.Now,
	}
}

// Run polls immediately and then on every interval until ctx is done.
// Failed polls are logged and skipped.
func (p *Poller) Run(ctx context.Context) error {
	if strings.TrimSpace(p.command) == "" {
		return ErrNoCommand
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[usage] %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce runs the command once, records the sample and emits it.
func (p *Poller) PollOnce(ctx context.Context) (types.UsageSample, error) {
	if strings.TrimSpace(p.command) == "" {
		return types.UsageSample{}, ErrNoCommand
	}
	output, err := p.run(ctx, p.command)
	if err != nil {
		return types.UsageSample{}, fmt.Errorf("run %q: %w", p.command, err)
	}
	tokens, cost, err := ParseOutput(output)
	if err != nil {
		return types.UsageSample{}, err
	}
	sample := p.sampler.Observe(tokens, cost, p.now())
	if p.emit != nil {
		p.emit(types.NewUsageEnvelope(sample))
	}
	return sample, nil
}

// execCommand runs command with sh -c and returns its stdout.
func execCommand(ctx context.Context, command string) ([]byte, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrNoCommand
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "sh", "-c", command).Output()
	if err != nil {
		return out, fmt.Errorf("run %q: %w", command, err)
	}
	return out, nil
}
