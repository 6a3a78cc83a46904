package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/core"
	"github.com/Lovsan/chatterbox/internal/domain"
)

// Translator is the external transcription/translation collaborator.
type Translator interface {
	TranscribeTranslate(ctx context.Context, audio []byte, sourceLang, targetLang string) (string, error)
}

// Preference is a per (call session, identity) caption setting. It dies
// with the session.
type Preference struct {
	Enabled    bool
	TargetLang string
	SourceLang string
}

// Relay forwards call audio chunks to the translation collaborator and
// fans the resulting captions out to call participants, each in their own
// preferred language. The collaborator is invoked once per distinct
// target language, not once per participant.
type Relay struct {
	presence   *Registry
	calls      *Calls
	translator Translator

	mu    sync.Mutex
	prefs map[string]map[domain.UserID]Preference
}

func NewRelay(presence *Registry, calls *Calls, translator Translator) *Relay {
	r := &Relay{
		presence:   presence,
		calls:      calls,
		translator: translator,
		prefs:      make(map[string]map[domain.UserID]Preference),
	}
	calls.SetOnTerminal(r.DropSession)
	return r
}

// SetPreference registers or updates caption settings for one participant
// of a live session.
func (r *Relay) SetPreference(sessionID string, uid domain.UserID, pref Preference) error {
	sess, ok := r.calls.Session(sessionID)
	if !ok {
		return core.NewError(core.KindSessionState, "call not found")
	}
	if !sess.Participant(uid) {
		return core.NewError(core.KindSessionState, "you are not part of this call")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser, ok := r.prefs[sessionID]
	if !ok {
		byUser = make(map[domain.UserID]Preference)
		r.prefs[sessionID] = byUser
	}
	byUser[uid] = pref
	log.Debug().Str("module", "app.relay").Str("session", sessionID).Int64("user", int64(uid)).Str("target", pref.TargetLang).Bool("enabled", pref.Enabled).Msg("translation preference set")
	return nil
}

// DropSession discards all preferences for a finished session.
func (r *Relay) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.prefs, sessionID)
}

// Chunk relays one audio chunk from a speaker. Collaborator failure is
// reported as a translation_error scoped to the session and never aborts
// the underlying call. ctx should be the speaking connection's context so
// in-flight work dies with it.
func (r *Relay) Chunk(ctx context.Context, sessionID string, speaker *domain.User, audio []byte, sourceLang string) {
	sess, ok := r.calls.Session(sessionID)
	if !ok || !sess.Participant(speaker.ID) {
		return
	}

	r.mu.Lock()
	byUser := r.prefs[sessionID]
	// target language -> listeners wanting it
	wanted := make(map[string][]domain.UserID)
	for uid, p := range byUser {
		if !p.Enabled || p.TargetLang == "" {
			continue
		}
		if sourceLang == "" {
			sourceLang = p.SourceLang
		}
		wanted[p.TargetLang] = append(wanted[p.TargetLang], uid)
	}
	r.mu.Unlock()

	if len(wanted) == 0 {
		return
	}

	for lang, listeners := range wanted {
		text, err := r.translator.TranscribeTranslate(ctx, audio, sourceLang, lang)
		if err != nil {
			if ctx.Err() != nil {
				// Speaker disconnected mid-flight; nothing to report.
				return
			}
			log.Error().Err(err).Str("module", "app.relay").Str("session", sessionID).Str("target", lang).Msg("translation failed")
			r.emitError(sess, "translation service unavailable")
			return
		}
		frame, err := core.Encode(core.CaptionEvent{
			Type: core.EvTranslatedCaption, SessionID: sessionID,
			Speaker: speaker.Username, Language: lang, Text: text,
		})
		if err != nil {
			log.Error().Err(err).Str("module", "app.relay").Msg("encode caption")
			continue
		}
		for _, uid := range listeners {
			for _, conn := range r.presence.ConnectionsFor(uid) {
				_ = conn.TrySend(frame)
			}
		}
	}
}

// emitError notifies both participants once; captions are best effort.
func (r *Relay) emitError(sess *domain.CallSession, msg string) {
	frame, err := core.Encode(core.TranslationErrorEvent{
		Type: core.EvTranslationError, SessionID: sess.ID, Error: msg,
	})
	if err != nil {
		return
	}
	for _, uid := range []domain.UserID{sess.CallerID, sess.CalleeID} {
		for _, conn := range r.presence.ConnectionsFor(uid) {
			_ = conn.TrySend(frame)
		}
	}
}
