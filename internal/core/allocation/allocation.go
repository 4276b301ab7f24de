// Package allocation turns a total session cost and an ordered participant
// set into per-participant charges. It is pure: no persistence knowledge,
// no side effects, safe to call speculatively for previews.
package allocation

import (
	"fmt"

	"github.com/efficienttutor/tuition_ledger_app/internal/apperrors"
	"github.com/shopspring/decimal"
)

var cent = decimal.New(1, -2)

// Share is one participant's computed portion of a total.
type Share struct {
	StudentID string
	ParentID  string
	Amount    decimal.Decimal
	RuleName  string // Name of the exception rule that fixed this share, empty for the default split
}

// Rule overrides the shares of a specific participant group. It matches only
// when every listed participant is present in the allocation; each matched
// participant then receives EachAmount instead of the equal-split share.
// Typical use is a sibling discount that fixes two students' shares when
// they attend together.
type Rule struct {
	Name       string
	StudentIDs []string
	EachAmount decimal.Decimal
}

// Allocate splits total across participants. The default policy is an equal
// split in minor currency units with the remainder assigned one cent each to
// the first participants in the given order, so identical inputs always
// produce identical output. Rules are applied in registration order and the
// first matching rule wins per participant; participants not fixed by any
// rule split the residual equally.
//
// It fails with apperrors.ErrAllocation when participants is empty, when a
// participant has no resolvable payer, when rule-fixed amounts exceed total,
// or when every participant is rule-fixed and the fixed amounts do not add
// up to total exactly.
func Allocate(total decimal.Decimal, participants []string, payerOf map[string]string, rules []Rule) ([]Share, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: no participants to allocate across", apperrors.ErrAllocation)
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("%w: total amount %s is negative", apperrors.ErrAllocation, total.String())
	}
	seen := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %s", apperrors.ErrAllocation, id)
		}
		seen[id] = struct{}{}
		if payerOf[id] == "" {
			return nil, fmt.Errorf("%w: participant %s has no resolvable payer", apperrors.ErrAllocation, id)
		}
	}

	// First matching rule wins per participant.
	fixed := make(map[string]*Rule, len(participants))
	for i := range rules {
		rule := &rules[i]
		if !matches(rule, seen) {
			continue
		}
		for _, id := range rule.StudentIDs {
			if _, already := fixed[id]; !already {
				fixed[id] = rule
			}
		}
	}

	fixedSum := decimal.Zero
	remaining := make([]string, 0, len(participants))
	for _, id := range participants {
		if rule, ok := fixed[id]; ok {
			fixedSum = fixedSum.Add(rule.EachAmount)
		} else {
			remaining = append(remaining, id)
		}
	}
	residual := total.Sub(fixedSum)
	if residual.IsNegative() {
		return nil, fmt.Errorf("%w: rule-assigned amounts %s exceed total %s",
			apperrors.ErrAllocation, fixedSum.String(), total.String())
	}
	if len(remaining) == 0 && !residual.IsZero() {
		return nil, fmt.Errorf("%w: rule-assigned amounts %s do not add up to total %s",
			apperrors.ErrAllocation, fixedSum.String(), total.String())
	}

	equal := map[string]decimal.Decimal{}
	if len(remaining) > 0 {
		var err error
		equal, err = splitEqually(residual, remaining)
		if err != nil {
			return nil, err
		}
	}

	shares := make([]Share, len(participants))
	for i, id := range participants {
		share := Share{StudentID: id, ParentID: payerOf[id]}
		if rule, ok := fixed[id]; ok {
			share.Amount = rule.EachAmount
			share.RuleName = rule.Name
		} else {
			share.Amount = equal[id]
		}
		shares[i] = share
	}
	return shares, nil
}

// Sum adds up the amounts of all shares. The caller uses this to assert the
// sum-of-charges invariant before persisting.
func Sum(shares []Share) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Amount)
	}
	return total
}

func matches(rule *Rule, present map[string]struct{}) bool {
	if len(rule.StudentIDs) == 0 {
		return false
	}
	for _, id := range rule.StudentIDs {
		if _, ok := present[id]; !ok {
			return false
		}
	}
	return true
}

// splitEqually divides amount across ids in whole cents. The first
// amount%n participants (in input order) each receive one extra cent.
func splitEqually(amount decimal.Decimal, ids []string) (map[string]decimal.Decimal, error) {
	cents := amount.Div(cent)
	if !cents.IsInteger() {
		return nil, fmt.Errorf("%w: amount %s is not a whole number of minor currency units",
			apperrors.ErrAllocation, amount.String())
	}
	n := int64(len(ids))
	totalCents := cents.IntPart()
	base := totalCents / n
	extra := totalCents % n

	out := make(map[string]decimal.Decimal, len(ids))
	for i, id := range ids {
		c := base
		if int64(i) < extra {
			c++
		}
		out[id] = decimal.New(c, -2)
	}
	return out, nil
}
