package ws

import (
	"encoding/json"

	"github.com/Lovsan/chatterbox/internal/app"
	"github.com/Lovsan/chatterbox/internal/core"
)

func (ctl *Controller) handleTranslationPreferences(c *wsConn, data []byte) {
	var p struct {
		Type           string `json:"type"`
		SessionID      string `json:"sessionId"`
		Enabled        bool   `json:"enabled"`
		TargetLanguage string `json:"target_language"`
		SourceLanguage string `json:"source_language"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		ctl.sendError(c, core.NewError(core.KindValidation, "bad set_translation_preferences payload"))
		return
	}
	pref := app.Preference{
		Enabled:    p.Enabled,
		TargetLang: p.TargetLanguage,
		SourceLang: p.SourceLanguage,
	}
	if err := ctl.coord.Relay.SetPreference(p.SessionID, c.user.ID, pref); err != nil {
		ctl.sendError(c, err)
	}
}

// handleTranscriptionChunk hands audio off to the relay on a separate
// goroutine so a slow translation backend never stalls this reader.
func (ctl *Controller) handleTranscriptionChunk(c *wsConn, data []byte) {
	var p struct {
		Type           string `json:"type"`
		SessionID      string `json:"sessionId"`
		Audio          []byte `json:"audio"`
		SourceLanguage string `json:"source_language"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || len(p.Audio) == 0 {
		ctl.sendError(c, core.NewError(core.KindValidation, "bad call_transcription_chunk payload"))
		return
	}
	go ctl.coord.Relay.Chunk(c.ctx, p.SessionID, c.user, p.Audio, p.SourceLanguage)
}
