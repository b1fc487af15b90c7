package convert

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/flanksource/brandify/detect"
	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/brandify/transform"
	"github.com/samber/lo"
)

// Tier is one step of the fallback chain.
type Tier interface {
	Name() string
	// Configured is false when the tier has no endpoint or image to use.
	Configured() bool
	Run(ctx context.Context, req Request) (*transform.Result, error)
}

// Tier names accepted by ParseOrder.
const (
	TierRemote  = "remote"
	TierModel   = "model"
	TierProcess = "process"
	TierBuiltin = "builtin"
	TierCopy    = "copy"
)

// DefaultOrder is the chain used when none is configured.
var DefaultOrder = []string{TierRemote, TierModel, TierProcess, TierCopy}

// Chain is an ordered list of tiers.
type Chain []Tier

// Names lists the tier names in order.
func (c Chain) Names() []string {
	return lo.Map(c, func(t Tier, _ int) string { return t.Name() })
}

// Run checks that the input exists and has a supported format, then runs
// FirstSuccess over the chain.
func (c Chain) Run(ctx context.Context, req Request) (*transform.Result, error) {
	if _, err := detect.DetectFormat(req.Input); err != nil {
		return nil, err
	}
	info, err := os.Stat(req.Input)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "cannot read %s", req.Input)
	}
	if info.IsDir() {
		return nil, errs.New(errs.IOError, "%s is a directory", req.Input)
	}
	return FirstSuccess(ctx, c, req)
}

// FirstSuccess runs tiers in order and returns the first success. Failures
// are logged and swallowed; nothing is retried. Unconfigured tiers are
// skipped. The error is returned only when every tier failed.
func FirstSuccess(ctx context.Context, tiers []Tier, req Request) (*transform.Result, error) {
	var failures []string
	for _, tier := range tiers {
		if !tier.Configured() {
			log.Debugf("skipping %s tier: not configured", tier.Name())
			continue
		}
		result, err := tier.Run(ctx, req)
		if err == nil && result != nil && result.Success {
			log.Infof("%s converted by %s tier (%s)", req.Input, tier.Name(), result.Metadata.ProcessMethod)
			return result, nil
		}
		if err == nil {
			err = fmt.Errorf("tier reported no success")
		}
		log.Warnf("%s tier failed for %s: %v", tier.Name(), req.Input, err)
		failures = append(failures, fmt.Sprintf("%s: %s", tier.Name(), errs.Message(err)))
	}
	if len(failures) == 0 {
		return nil, errs.New(errs.ProcessingError, "no conversion tier is configured")
	}
	return nil, errs.New(errs.ProcessingError, "all conversion tiers failed: %s", strings.Join(failures, "; "))
}

// ParseOrder turns "remote,model,copy" into a chain using the tiers in
// available. Names are case-insensitive; duplicates keep their first
// position.
func ParseOrder(order string, available map[string]Tier) (Chain, error) {
	names := lo.Uniq(lo.Compact(lo.Map(strings.Split(order, ","), func(s string, _ int) string {
		return strings.ToLower(strings.TrimSpace(s))
	})))
	if len(names) == 0 {
		names = DefaultOrder
	}
	var chain Chain
	for _, name := range names {
		tier, ok := available[name]
		if !ok {
			known := lo.Keys(available)
			sort.Strings(known)
			return nil, fmt.Errorf("unknown tier %q, expected one of %s", name, strings.Join(known, ", "))
		}
		chain = append(chain, tier)
	}
	return chain, nil
}
