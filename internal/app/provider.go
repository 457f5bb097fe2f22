package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is the wire-neutral {role, content} pair handed to collaborators.
type ChatTurn struct {
	Role    string
	Content string
}

// TurnsFromThread converts a resolved thread into classifier/provider turns.
func TurnsFromThread(thread []ThreadMessage) []ChatTurn {
	out := make([]ChatTurn, 0, len(thread))
	for _, tm := range thread {
		role := RoleUser
		if tm.Author == AuthorAssistant {
			role = RoleModel
		}
		out = append(out, ChatTurn{Role: role, Content: tm.Content})
	}
	return out
}

// CompletionProvider produces a streamed completion for a conversation
// history. onChunk receives incremental text to append; the call returning
// signals end of stream. The returned name identifies which provider served.
type CompletionProvider interface {
	Name() string
	StreamCompletion(ctx context.Context, history []ChatTurn, onChunk func(string)) error
}

// FallbackChain tries providers in preference order. A provider that errors
// before emitting any chunk is skipped; one that errors mid-stream aborts the
// chain (partial output is already on screen). It reports the name of the
// provider that ultimately served.
type FallbackChain struct {
	providers []CompletionProvider
	logger    *Logger
}

func NewFallbackChain(logger *Logger, providers ...CompletionProvider) *FallbackChain {
	return &FallbackChain{providers: providers, logger: logger}
}

func (f *FallbackChain) Stream(ctx context.Context, history []ChatTurn, onChunk func(string)) (served string, err error) {
	var lastErr error
	for _, p := range f.providers {
		emitted := false
		err := p.StreamCompletion(ctx, history, func(chunk string) {
			emitted = true
			onChunk(chunk)
		})
		if err == nil {
			return p.Name(), nil
		}
		lastErr = err
		if f.logger != nil {
			f.logger.Warn("provider failed", map[string]any{"provider": p.Name(), "error": err.Error()})
		}
		if emitted || errors.Is(err, context.Canceled) {
			return p.Name(), err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no completion providers configured")
	}
	return "", lastErr
}

// OfflineProvider is the terminal element of every chain: a canned response
// so the stream flag always resolves even with no network at all.
type OfflineProvider struct{}

func (OfflineProvider) Name() string { return "offline" }

func (OfflineProvider) StreamCompletion(ctx context.Context, history []ChatTurn, onChunk func(string)) error {
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			last = strings.TrimSpace(history[i].Content)
			break
		}
	}
	reply := "I'm offline right now, so here's a placeholder reply."
	if last != "" {
		reply = fmt.Sprintf("I'm offline right now and can't really answer %q, but the conversation keeps working: branch, swipe, and the timeline all run locally.", truncateSubtopic(last))
	}
	for _, word := range strings.SplitAfter(reply, " ") {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		onChunk(word)
	}
	return nil
}

// TopicSame is the classifier's literal no-shift marker.
const TopicSame = "SAME"

// TopicClassifier judges whether a batch of turns continues the previous
// topic. It resolves to TopicSame or to a short new title.
type TopicClassifier interface {
	Classify(ctx context.Context, previousTitle string, batch []ChatTurn) (string, error)
}

// LLMClassifier asks the completion client for a one-line topic judgment.
// Any failure degrades to TopicSame so topic tracking stalls instead of
// corrupting chapter state.
type LLMClassifier struct {
	Client *Client
	Logger *Logger
}

func (c *LLMClassifier) Classify(ctx context.Context, previousTitle string, batch []ChatTurn) (string, error) {
	var b strings.Builder
	b.WriteString("You segment a conversation into topics.\n")
	if previousTitle != "" {
		fmt.Fprintf(&b, "The current topic is %q.\n", previousTitle)
	} else {
		b.WriteString("There is no current topic yet.\n")
	}
	b.WriteString("If the following exchange continues the current topic, reply with exactly SAME.\n")
	b.WriteString("Otherwise reply with a new title of at most five words. Reply with the title only.\n\n")
	for _, turn := range batch {
		fmt.Fprintf(&b, "[%s] %s\n", turn.Role, turn.Content)
	}

	raw, err := c.Client.Complete(ctx, []ChatTurn{{Role: RoleUser, Content: b.String()}})
	if err != nil {
		if c.Logger != nil {
			c.Logger.Warn("classification failed, treating as same topic", map[string]any{"error": err.Error()})
		}
		return TopicSame, nil
	}
	title := strings.Trim(strings.TrimSpace(raw), "\"'` ")
	if title == "" || strings.EqualFold(title, TopicSame) {
		return TopicSame, nil
	}
	if line, _, found := strings.Cut(title, "\n"); found {
		title = strings.TrimSpace(line)
	}
	return title, nil
}

// StaticClassifier always answers the same thing. Used in mock mode and in
// tests.
type StaticClassifier struct {
	Result string
}

func (c StaticClassifier) Classify(ctx context.Context, previousTitle string, batch []ChatTurn) (string, error) {
	if c.Result == "" {
		return TopicSame, nil
	}
	return c.Result, nil
}
