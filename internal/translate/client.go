// Package translate is the HTTP client for the external transcription
// and translation collaborator.
package translate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrUnavailable = errors.New("translation service unavailable")

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

type request struct {
	Audio      string `json:"audio"`
	SourceLang string `json:"source_language,omitempty"`
	TargetLang string `json:"target_language"`
}

type response struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// TranscribeTranslate sends one audio chunk and returns the caption in
// the target language.
func (c *Client) TranscribeTranslate(ctx context.Context, audio []byte, sourceLang, targetLang string) (string, error) {
	if c.url == "" {
		return "", ErrUnavailable
	}
	body, err := json.Marshal(request{
		Audio:      base64.StdEncoding.EncodeToString(audio),
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: bad response", ErrUnavailable)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, out.Error)
	}
	return out.Text, nil
}
