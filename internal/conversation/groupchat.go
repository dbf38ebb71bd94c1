// Package conversation runs a round-robin group chat between agents.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/crewforge/internal/logging"
	"github.com/ShayCichocki/crewforge/internal/retry"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// DefaultMaxRounds is used when GroupChat.MaxRounds is not set.
const DefaultMaxRounds = 20

// TerminateMarker ends the conversation when it appears in a reply.
const TerminateMarker = "TERMINATE"

// ErrNoParticipants is returned by Run when the chat has no agents.
var ErrNoParticipants = errors.New("group chat has no participants")

// Participant is one speaker in the chat.
type Participant interface {
	Name() string
	Reply(ctx context.Context, transcript []models.Message) (string, error)
}

// Pauser blocks while an operator pause is in effect.
type Pauser interface {
	WaitWhilePaused(ctx context.Context) error
}

// StopReason says why a conversation ended.
type StopReason string

const (
	StopMaxRounds  StopReason = "max_rounds"
	StopTerminated StopReason = "terminated"
	StopFatal      StopReason = "fatal_error"
	StopCancelled  StopReason = "cancelled"
)

// Transcript is the result of a conversation.
type Transcript struct {
	Messages   []models.Message
	StopReason StopReason
	// Failures counts turns whose reply errored without ending the chat.
	Failures int
}

// LastMessage returns the final non-failed message, if any.
func (t *Transcript) LastMessage() (models.Message, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if !t.Messages[i].Failed {
			return t.Messages[i], true
		}
	}
	return models.Message{}, false
}

// GroupChat rotates turns between Agents. The first agent posts the opening
// message, then speakers take turns in order until MaxRounds messages exist,
// a reply contains TerminateMarker, or a fatal error occurs.
type GroupChat struct {
	Agents    []Participant
	MaxRounds int
	Logger    logging.Logger
	// Pauser, when set, is consulted before every turn.
	Pauser Pauser
	// OnMessage, when set, observes each message as it is appended.
	OnMessage func(models.Message)

	now func() time.Time
}

// Run drives the conversation. The returned transcript is never nil, even
// alongside an error. Errors are returned only for fatal reply errors and
// cancellation; other reply errors are recorded as failed turns.
func (g *GroupChat) Run(ctx context.Context, firstMessage string) (*Transcript, error) {
	t := &Transcript{}
	if len(g.Agents) == 0 {
		return t, ErrNoParticipants
	}

	maxRounds := g.MaxRounds
	if maxRounds < 1 {
		maxRounds = DefaultMaxRounds
	}
	logger := g.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	now := g.now
	if now == nil {
		now = time.Now
	}

	g.append(t, models.Message{Speaker: g.Agents[0].Name(), Content: firstMessage, At: now()})
	logger.Log("[chat] %d agents, up to %d rounds", len(g.Agents), maxRounds)

	for turn := 1; len(t.Messages) < maxRounds; turn++ {
		if err := ctx.Err(); err != nil {
			t.StopReason = StopCancelled
			return t, err
		}
		if g.Pauser != nil {
			if err := g.Pauser.WaitWhilePaused(ctx); err != nil {
				t.StopReason = StopCancelled
				return t, err
			}
		}

		speaker := g.Agents[turn%len(g.Agents)]
		reply, err := speaker.Reply(ctx, t.Messages)
		if err != nil {
			switch {
			case ctx.Err() != nil || errors.Is(err, context.Canceled):
				t.StopReason = StopCancelled
				return t, err
			case retry.IsFatal(err):
				logger.Log("[chat] %s: fatal error, stopping: %v", speaker.Name(), err)
				t.StopReason = StopFatal
				return t, fmt.Errorf("turn %d (%s): %w", turn, speaker.Name(), err)
			}
			logger.Log("[chat] %s: reply failed, passing turn: %v", speaker.Name(), err)
			t.Failures++
			g.append(t, models.Message{Speaker: speaker.Name(), Content: err.Error(), At: now(), Failed: true})
			continue
		}

		g.append(t, models.Message{Speaker: speaker.Name(), Content: reply, At: now()})
		if strings.Contains(reply, TerminateMarker) {
			logger.Log("[chat] %s requested termination after %d messages", speaker.Name(), len(t.Messages))
			t.StopReason = StopTerminated
			return t, nil
		}
	}

	logger.Log("[chat] reached %d rounds", maxRounds)
	t.StopReason = StopMaxRounds
	return t, nil
}

func (g *GroupChat) append(t *Transcript, m models.Message) {
	t.Messages = append(t.Messages, m)
	if g.OnMessage != nil {
		g.OnMessage(m)
	}
}
