package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
)

const DefaultEndpoint = "https://hcaptcha.com/siteverify"

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// ErrFailed means hCaptcha rejected the token.
var ErrFailed = errors.New("hCaptcha validation failed")

// Verifier checks hCaptcha tokens. A verifier without secret accepts everything.
type Verifier struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

// NewVerifier reads HCAPTCHA_SECRET
func NewVerifier() *Verifier {
	return &Verifier{
		Secret:   env.GetEnv("HCAPTCHA_SECRET", ""),
		Endpoint: DefaultEndpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether tokens are checked at all
func (v *Verifier) Enabled() bool {
	return v != nil && v.Secret != ""
}

func (v *Verifier) Verify(ctx context.Context, token string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrFailed)
	}

	formData := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		if len(response.ErrorCodes) > 0 {
			return fmt.Errorf("%w: %s", ErrFailed, strings.Join(response.ErrorCodes, ", "))
		}
		return ErrFailed
	}
	return nil
}
