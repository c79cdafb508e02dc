// Package retag decides whether a synthesized replacement should be sent
// to the ledger, so that rerunning over the same data changes nothing.
//
// Every candidate resolves to exactly one outcome:
//
//	up_to_date    the ledger already holds the proposed entries
//	new_tag       the entry was never tagged and is updated
//	retag         a tagged entry changed and is updated again
//	no_retag      a tagged entry changed but retagging is off
//	user_skipped  a tagged entry changed and the user declined
//
// Interactive mode blocks on a Prompter for each changed entry; an abort
// from the prompter ends the whole run.
package retag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
)

// Mode selects how previously tagged entries that changed are handled.
type Mode string

const (
	ModeOff         Mode = "off"
	ModeInteractive Mode = "interactive"
	ModeForce       Mode = "force"
)

// ParseMode validates a mode name. The empty string means ModeOff.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeOff, nil
	case ModeOff, ModeInteractive, ModeForce:
		return m, nil
	default:
		return "", fmt.Errorf("unknown retag mode %q", s)
	}
}

// Outcome is the terminal state for one candidate.
type Outcome string

const (
	OutcomeUpToDate    Outcome = "up_to_date"
	OutcomeNewTag      Outcome = "new_tag"
	OutcomeRetag       Outcome = "retag"
	OutcomeNoRetag     Outcome = "no_retag"
	OutcomeUserSkipped Outcome = "user_skipped"
)

// Applies reports whether the outcome sends an update.
func (o Outcome) Applies() bool {
	return o == OutcomeNewTag || o == OutcomeRetag
}

// ErrAborted is returned by a Prompter when the user ends the session.
var ErrAborted = errors.New("retag confirmation aborted")

// Prompter asks whether to replace a previously tagged entry.
type Prompter interface {
	Confirm(ctx context.Context, update ledger.Update) (bool, error)
}

// Config holds policy configuration
type Config struct {
	Mode           Mode
	IgnoreCategory bool
	// Prefixes recognize entries this tool tagged before. Matching ignores case.
	Prefixes []string
	// MaxUpdates caps the number of updates. Zero means no cap.
	MaxUpdates int
}

// Decision is the outcome for one candidate.
type Decision struct {
	Update  ledger.Update
	Outcome Outcome
}

// Policy resolves candidates to outcomes.
type Policy struct {
	config   Config
	prompter Prompter
	prefixes []string
}

// NewPolicy creates a policy. prompter is only consulted in interactive mode.
func NewPolicy(config Config, prompter Prompter) *Policy {
	prefixes := make([]string, 0, len(config.Prefixes))
	for _, p := range config.Prefixes {
		if p != "" {
			prefixes = append(prefixes, strings.ToLower(p))
		}
	}
	return &Policy{config: config, prompter: prompter, prefixes: prefixes}
}

// PreviouslyTagged reports whether t's description carries a recognized prefix.
func (p *Policy) PreviouslyTagged(t *ledger.Transaction) bool {
	merchant := strings.ToLower(t.Merchant)
	for _, pre := range p.prefixes {
		if strings.HasPrefix(merchant, pre) {
			return true
		}
	}
	return false
}

// Decide resolves one candidate.
func (p *Policy) Decide(ctx context.Context, u ledger.Update) (Outcome, error) {
	if ledger.Identical(u.Original, u.Proposed, p.config.IgnoreCategory) {
		return OutcomeUpToDate, nil
	}
	if !p.PreviouslyTagged(u.Original) {
		return OutcomeNewTag, nil
	}

	switch p.config.Mode {
	case ModeForce:
		return OutcomeRetag, nil
	case ModeInteractive:
		if p.prompter == nil {
			return "", fmt.Errorf("interactive retag requires a prompter")
		}
		ok, err := p.prompter.Confirm(ctx, u)
		if err != nil {
			return "", fmt.Errorf("confirm retag of %s: %w", u.Original.ID, err)
		}
		if !ok {
			return OutcomeUserSkipped, nil
		}
		return OutcomeRetag, nil
	default:
		return OutcomeNoRetag, nil
	}
}

// Resolve decides every candidate in order and returns the decisions plus
// the updates to send, truncated to the cap. In interactive mode no further
// prompts are shown once the cap is reached; the remaining candidates are
// not decided.
func (p *Policy) Resolve(ctx context.Context, candidates []ledger.Update) ([]Decision, []ledger.Update, error) {
	var decisions []Decision
	var updates []ledger.Update
	for _, u := range candidates {
		if p.capReached(len(updates)) && p.config.Mode == ModeInteractive {
			break
		}
		outcome, err := p.Decide(ctx, u)
		if err != nil {
			return decisions, nil, err
		}
		decisions = append(decisions, Decision{Update: u, Outcome: outcome})
		if outcome.Applies() {
			updates = append(updates, u)
		}
	}

	if p.config.MaxUpdates > 0 && len(updates) > p.config.MaxUpdates {
		updates = updates[:p.config.MaxUpdates]
	}
	return decisions, updates, nil
}

func (p *Policy) capReached(n int) bool {
	return p.config.MaxUpdates > 0 && n >= p.config.MaxUpdates
}

// Tally counts decisions by outcome.
func Tally(decisions []Decision) map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, d := range decisions {
		counts[d.Outcome]++
	}
	return counts
}
