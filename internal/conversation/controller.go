// ABOUTME: Conversation controller handling the load-assemble-generate-persist turn cycle
// ABOUTME: Owns pruning, version-conflict retries, and the at-most-one-mutation guarantee

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harmonie-ai/harmonie/internal/gemini"
	"github.com/harmonie-ai/harmonie/internal/persona"
	"github.com/harmonie-ai/harmonie/internal/store"
	"github.com/harmonie-ai/harmonie/internal/transcript"
)

const (
	// DefaultMaxHistoryParts caps stored history before pruning kicks in.
	DefaultMaxHistoryParts = 40
	// DefaultGenerateTimeout bounds one gateway call.
	DefaultGenerateTimeout = 60 * time.Second
	// maxSaveAttempts bounds version-conflict retries per turn.
	maxSaveAttempts = 3
)

// Generator is the generation gateway the controller calls. Satisfied by
// *gemini.Client; tests substitute doubles.
type Generator interface {
	Generate(ctx context.Context, parts []transcript.Part, decoding gemini.DecodingConfig, safety []gemini.SafetySetting) (string, error)
}

// TurnResult is the outcome of a successful (or content-successful) turn.
type TurnResult struct {
	// Reply is the generated text, verbatim.
	Reply string
	// Persisted reports whether the exchange reached the session store.
	// False means the reply is valid but the next turn may lose context.
	Persisted bool
}

// Options tunes controller behavior. Zero values pick the defaults above.
type Options struct {
	Decoding        gemini.DecodingConfig
	Safety          []gemini.SafetySetting
	MaxHistoryParts int
	GenerateTimeout time.Duration
	Logger          *slog.Logger
}

// Controller orchestrates conversation turns. All dependencies are
// injected; the controller holds no per-user state between turns.
type Controller struct {
	store     store.Store
	generator Generator
	persona   *persona.Persona

	decoding        gemini.DecodingConfig
	safety          []gemini.SafetySetting
	maxHistoryParts int
	generateTimeout time.Duration
	logger          *slog.Logger
}

// New creates a Controller.
func New(st store.Store, gen Generator, p *persona.Persona, opts Options) *Controller {
	decoding := opts.Decoding
	if decoding == (gemini.DecodingConfig{}) {
		decoding = gemini.DefaultDecodingConfig
	}
	safety := opts.Safety
	if len(safety) == 0 {
		safety = gemini.DefaultSafetySettings()
	}
	maxParts := opts.MaxHistoryParts
	if maxParts <= 0 {
		maxParts = DefaultMaxHistoryParts
	}
	timeout := opts.GenerateTimeout
	if timeout == 0 {
		timeout = DefaultGenerateTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		store:           st,
		generator:       gen,
		persona:         p,
		decoding:        decoding,
		safety:          safety,
		maxHistoryParts: maxParts,
		generateTimeout: timeout,
		logger:          logger.With("component", "conversation"),
	}
}

// HandleTurn runs one complete turn for a user. Empty input flows through
// the full assembly and generation path unchanged.
//
// On generation failure nothing is persisted and the returned result is
// nil. On persistence failure after a successful generation the result
// still carries the reply with Persisted=false, alongside a TurnError of
// kind KindPersistenceFailed.
func (c *Controller) HandleTurn(ctx context.Context, userID, userName, input string) (*TurnResult, error) {
	turnID := uuid.New().String()
	logger := c.logger.With("turn_id", turnID, "user_id", userID)

	session := c.loadSession(ctx, logger, userID, userName)

	instruction := c.persona.RenderInstruction(userName)
	prompt := transcript.Assemble(instruction, session.History, input)

	genCtx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	reply, err := c.generator.Generate(genCtx, prompt, c.decoding, c.safety)
	if err != nil {
		logger.Warn("generation failed", "error", err)
		return nil, wrapGenerationError(err)
	}

	logger.Debug("generation succeeded", "reply_len", len(reply), "history_len", len(session.History))

	if err := c.persistExchange(ctx, logger, session, userName, input, reply); err != nil {
		logger.Warn("persistence failed, reply still delivered", "error", err)
		return &TurnResult{Reply: reply, Persisted: false},
			&TurnError{Kind: KindPersistenceFailed, Err: err}
	}

	return &TurnResult{Reply: reply, Persisted: true}, nil
}

// loadSession fetches the user's session, synthesizing a fresh one when
// no record exists, the stored record is corrupt, or the store cannot be
// reached. A turn never aborts on a load failure: the reply is generated
// without context and the save path reports whether persistence worked.
// If the store recovers before save, the fresh session's zero version
// conflicts with the surviving row and the retry folds the real history
// back in.
func (c *Controller) loadSession(ctx context.Context, logger *slog.Logger, userID, userName string) *store.Session {
	session, err := c.store.Load(ctx, userID)
	switch {
	case err == nil:
		return session
	case errors.Is(err, store.ErrNotFound):
		return store.NewSession(userID, userName)
	case store.IsCorrupt(err):
		// A corrupt record is unrecoverable; start the user over rather
		// than failing every subsequent turn. The store hands back the
		// row's identity and version so the overwrite lands.
		logger.Error("stored session is corrupt, starting fresh", "error", err)
		if session != nil {
			session.History = nil
			return session
		}
		return store.NewSession(userID, userName)
	default:
		logger.Error("session load failed, continuing without context", "error", err)
		return store.NewSession(userID, userName)
	}
}

// persistExchange appends the turn's exchange to the session, prunes, and
// saves. Version conflicts mean another turn for the same user saved
// concurrently; retry by reloading the latest history and re-appending
// this turn's exchange so neither turn's exchange is silently discarded.
func (c *Controller) persistExchange(ctx context.Context, logger *slog.Logger, session *store.Session, userName, input, reply string) error {
	exchange := transcript.Exchange(input, reply)

	for attempt := 1; ; attempt++ {
		session.UserName = userName
		session.History = transcript.Prune(append(session.History, exchange...), c.maxHistoryParts)

		err := c.store.Save(ctx, session)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt >= maxSaveAttempts {
			return fmt.Errorf("saving session: %w", err)
		}

		logger.Debug("save conflict, reloading", "attempt", attempt)
		session = c.loadSession(ctx, logger, session.UserID, userName)
	}
}
